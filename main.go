package main

import (
	"context"
	"os"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/timvw/pane-pilot/cmd"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)

	if err := cmd.Execute(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("pane-pilot command failed")
		return 1
	}
	return 0
}
