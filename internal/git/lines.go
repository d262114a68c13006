package git

import (
	"strings"

	"github.com/schaermu/gitnomad/internal/nomad"
)

// Arity is how many lines a command printed.
type Arity int

const (
	Zero Arity = iota
	One
	Many
)

func (a Arity) String() string {
	switch a {
	case Zero:
		return "zero lines"
	case One:
		return "one line"
	default:
		return "many lines"
	}
}

// LineArity classifies line based command output.
type LineArity struct {
	Arity  Arity
	Line   string
	Output string
}

// LinesOf classifies output. A single empty line counts as Zero, which is
// what `git config --default ""` prints for a missing key.
func LinesOf(output string) LineArity {
	trimmed := strings.TrimSuffix(output, "\n")
	if trimmed == "" {
		return LineArity{Arity: Zero, Output: output}
	}
	if strings.Contains(trimmed, "\n") {
		return LineArity{Arity: Many, Output: output}
	}
	return LineArity{Arity: One, Line: strings.TrimSuffix(trimmed, "\r"), Output: output}
}

// One returns the single line, failing on any other arity.
func (l LineArity) One() (string, error) {
	if l.Arity != One {
		return "", &ArityError{Want: "one line", Got: l.Arity, Output: l.Output}
	}
	return l.Line, nil
}

// ZeroOrOne returns the line when there is exactly one.
func (l LineArity) ZeroOrOne() (string, bool, error) {
	switch l.Arity {
	case Zero:
		return "", false, nil
	case One:
		return l.Line, true, nil
	default:
		return "", false, &ArityError{Want: "zero or one line", Got: l.Arity, Output: l.Output}
	}
}

// ParseShowRefLine parses `{commit} {name}`.
func ParseShowRefLine(line string) (nomad.Ref, error) {
	return parseRefLine(line, " ")
}

// ParseLsRemoteLine parses `{commit}\t{name}`.
func ParseLsRemoteLine(line string) (nomad.Ref, error) {
	return parseRefLine(line, "\t")
}

func parseRefLine(line, sep string) (nomad.Ref, error) {
	commitID, name, found := strings.Cut(line, sep)
	if !found {
		return nomad.Ref{}, &ParseError{Line: line, Reason: "missing separator"}
	}
	if commitID == "" || name == "" {
		return nomad.Ref{}, &ParseError{Line: line, Reason: "empty commit id or ref name"}
	}
	if strings.Contains(name, sep) {
		return nomad.Ref{}, &ParseError{Line: line, Reason: "unexpected extra fields"}
	}
	return nomad.Ref{Name: name, CommitID: commitID}, nil
}
