// Package exec provides abstractions for command execution.
// Providers that shell out to a CLI take a CommandExecutor so tests can script it.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// Command describes one invocation.
type Command struct {
	Name string
	Args []string

	// Env is appended to the current process environment.
	Env []string

	// Stdin is fed to the process when not nil.
	Stdin []byte
}

// CommandExecutor defines an interface for executing commands.
// This abstraction allows for mocking CLI tool behavior in tests.
type CommandExecutor interface {
	// Execute runs cmd under ctx and returns stdout, stderr and any error.
	Execute(ctx context.Context, cmd Command) (stdout []byte, stderr []byte, err error)
}

// RealCommandExecutor executes actual commands using os/exec.
type RealCommandExecutor struct{}

// Execute runs an actual command.
func (r *RealCommandExecutor) Execute(ctx context.Context, c Command) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DefaultExecutor returns the standard production executor.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}
