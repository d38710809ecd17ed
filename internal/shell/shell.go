// Package shell models the shell family running inside a pane.
//
// The family only matters for marker-based completion: it decides which
// variable holds the previous command's exit status.
package shell

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Shell is a supported shell family.
type Shell string

const (
	Bash Shell = "bash"
	Zsh  Shell = "zsh"
	Fish Shell = "fish"
	Sh   Shell = "sh"
)

// Default is used when nothing is configured.
const Default = Bash

// MarkerPrefix starts the line echoed after a command in marker mode.
const MarkerPrefix = "PANE_PILOT_DONE_"

// All lists the supported shells in display order.
func All() []Shell {
	return []Shell{Bash, Zsh, Fish, Sh}
}

// Parse resolves a shell name or path ("zsh", "/usr/bin/fish", "-bash").
func Parse(name string) (Shell, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexByte(n, '/'); i >= 0 {
		n = n[i+1:]
	}
	n = strings.TrimPrefix(n, "-")
	switch Shell(n) {
	case Bash, Zsh, Fish, Sh:
		return Shell(n), nil
	case "dash", "ash", "ksh":
		return Sh, nil
	case "":
		return "", fmt.Errorf("empty shell name")
	default:
		return "", fmt.Errorf("unknown shell %q (supported: bash, zsh, fish, sh)", name)
	}
}

// ExitVar returns the expression that expands to the last exit status.
func (s Shell) ExitVar() string {
	if s == Fish {
		return "$status"
	}
	return "$?"
}

// EndMarker returns the suffix appended to a command so the shell reports
// its exit status on a line of its own. tag distinguishes this command's
// marker from older ones still in the scrollback.
func (s Shell) EndMarker(tag string) string {
	return fmt.Sprintf(`; echo "%s%s:%s"`, MarkerPrefix, tag, s.ExitVar())
}

// FindExitCode returns the exit status from the last marker line for tag.
// The echoed command itself never matches: there the marker is followed by
// the unexpanded variable, not digits.
func FindExitCode(content, tag string) (int, bool) {
	re := regexp.MustCompile(`(?m)^` + MarkerPrefix + regexp.QuoteMeta(tag) + `:(\d+)\s*$`)
	matches := re.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return 0, false
	}
	code, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, false
	}
	return code, true
}
