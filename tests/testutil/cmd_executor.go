// Package testutil provides testing utilities for secretsrc.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"

	secexec "github.com/systmms/secretsrc/pkg/exec"
)

// MockCommandExecutor is a configurable secexec.CommandExecutor for CLI-backed providers.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args)
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute for verification.
	RecordedCalls []secexec.Command

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses: make(map[string]MockResponse),
	}
}

// Execute returns the mocked response for the given command.
// An exact key match wins, then the longest matching prefix.
func (m *MockCommandExecutor) Execute(ctx context.Context, cmd secexec.Command) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordedCalls = append(m.RecordedCalls, cmd)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	key := cmd.Name
	if len(cmd.Args) > 0 {
		key += " " + strings.Join(cmd.Args, " ")
	}

	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}

	patterns := make([]string, 0, len(m.Responses))
	for pattern := range m.Responses {
		if strings.HasPrefix(key, pattern) {
			patterns = append(patterns, pattern)
		}
	}
	if len(patterns) > 0 {
		sort.Slice(patterns, func(i, j int) bool { return len(patterns[i]) > len(patterns[j]) })
		resp := m.Responses[patterns[0]]
		return resp.Stdout, resp.Stderr, resp.Err
	}

	if m.DefaultResponse != nil {
		return m.DefaultResponse.Stdout, m.DefaultResponse.Stderr, m.DefaultResponse.Err
	}
	if m.StrictMode {
		return nil, nil, fmt.Errorf("mock: no response configured for command: %s", key)
	}
	return []byte{}, []byte{}, nil
}

// AddResponse registers a mock response for a specific command pattern.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddOutput registers a successful response printing stdout.
func (m *MockCommandExecutor) AddOutput(commandPattern, stdout string) {
	m.AddResponse(commandPattern, MockResponse{Stdout: []byte(stdout)})
}

// AddErrorResponse registers a failed response with stderr and a real *exec.ExitError
// carrying a non-zero exit code.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, stderr string) {
	m.AddResponse(commandPattern, MockResponse{
		Stderr: []byte(stderr),
		Err:    &exec.ExitError{},
	})
}

// AddNotFound registers a response reporting that the binary is not installed.
func (m *MockCommandExecutor) AddNotFound(commandPattern string) {
	m.AddResponse(commandPattern, MockResponse{
		Err: &exec.Error{Name: commandPattern, Err: exec.ErrNotFound},
	})
}

// Calls returns every recorded call of the named command.
func (m *MockCommandExecutor) Calls(name string) []secexec.Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []secexec.Command
	for _, call := range m.RecordedCalls {
		if call.Name == name {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of times Execute was called.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

var _ secexec.CommandExecutor = (*MockCommandExecutor)(nil)
