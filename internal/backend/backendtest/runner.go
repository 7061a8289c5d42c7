// Package backendtest provides test doubles for backend.CommandRunner.
package backendtest

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock implementing backend.CommandRunner.
type MockRunner struct {
	mock.Mock
}

// Run implements backend.CommandRunner.
func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	ret := m.Called(ctx, name, args, stdin)

	if v, ok := ret.Get(0).([]byte); ok {
		stdout = v
	}
	if v, ok := ret.Get(1).([]byte); ok {
		stderr = v
	}

	return stdout, stderr, ret.Error(2)
}

// BlockUntilDone is a mock.Run hook that waits for the call's context to end,
// simulating a process killed by its deadline.
func BlockUntilDone(args mock.Arguments) {
	ctx := args.Get(0).(context.Context)
	<-ctx.Done()
}
