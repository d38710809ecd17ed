package mux

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

// ExecInvoker runs tmux command lines as child processes. It implements
// queue.Invoker and is the only place the tmux binary is executed.
type ExecInvoker struct {
	// Binary is the tmux executable. Defaults to "tmux".
	Binary string
	// Socket selects a named server socket (tmux -L).
	Socket string
	// SSH, when set, is a command prefix (e.g. "ssh user@devbox") used to
	// run tmux on a remote machine.
	SSH string
}

func (e *ExecInvoker) binary() string {
	if e.Binary == "" {
		return "tmux"
	}
	return e.Binary
}

// Invoke runs one tmux command line and returns its standard output.
// The line uses shell quoting; it is split into arguments, never passed to
// a local shell.
func (e *ExecInvoker) Invoke(ctx context.Context, commandLine string) (string, error) {
	args, err := shlex.Split(commandLine)
	if err != nil {
		return "", fmt.Errorf("parse command line %q: %w", commandLine, err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("empty tmux command")
	}
	if e.Socket != "" {
		args = append([]string{"-L", e.Socket}, args...)
	}

	var cmd *exec.Cmd
	if e.SSH != "" {
		remote := e.binary() + " " + shellJoin(args)
		cmd = exec.CommandContext(ctx, "sh", "-c", e.SSH+" "+shellEscape(remote))
	} else {
		cmd = exec.CommandContext(ctx, e.binary(), args...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// shellEscape single-quotes s for a POSIX shell.
func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// shellJoin quotes every argument and joins them with spaces.
func shellJoin(args []string) string {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = shellEscape(arg)
	}
	return strings.Join(escaped, " ")
}

// quote renders s as a single-quoted tmux argument that shlex.Split turns
// back into s.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
