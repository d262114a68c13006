package git

import (
	"fmt"
	"strings"

	"github.com/schaermu/gitnomad/internal/nomad"
)

// CommandError reports a git invocation that failed to run or exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ParseError reports a listing line that does not have the expected shape.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable ref line %q: %s", e.Line, e.Reason)
}

// ArityError reports command output with an unexpected number of lines.
type ArityError struct {
	Want   string
	Got    Arity
	Output string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("expected %s, got %s: %q", e.Want, e.Got, e.Output)
}

// PartialConfigError reports a repository with only one half of the nomad
// identity stored.
type PartialConfigError struct {
	User string
	Host string
}

func (e *PartialConfigError) Error() string {
	return fmt.Sprintf("partial configuration: %s=%q %s=%q (both or neither must be set)",
		nomad.ConfigKey("user"), e.User, nomad.ConfigKey("host"), e.Host)
}
