// Package executor runs external commands, optionally through pkexec.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ElevationProgram prefixes elevated commands
const ElevationProgram = "pkexec"

// Command is a program and its argv. Arguments are never passed through a
// shell.
type Command struct {
	Program  string
	Args     []string
	Elevated bool
}

// Argv returns the full argv actually executed
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+2)
	if c.Elevated {
		argv = append(argv, ElevationProgram)
	}
	argv = append(argv, c.Program)
	return append(argv, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result holds the output of a command that was started
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with status 0
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes commands. Run returns an error only when the command
// could not be started or waited for; a non-zero exit is reported through
// Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// System runs commands on the host
type System struct{}

func (System) Run(ctx context.Context, cmd Command) (*Result, error) {
	argv := cmd.Argv()
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s: %w", argv[0], ctx.Err())
	default:
		return result, err
	}
}
