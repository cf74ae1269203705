package tasker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// MockImageProvider is a mock implementation of the ImageProvider interface for testing.
type MockImageProvider struct {
	mock.Mock
}

// Capture mocks the Capture method.
func (m *MockImageProvider) Capture(ctx context.Context) (schemas.Observation, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.Observation), args.Error(1)
}

// MockModelClient is a mock implementation of the ModelClient interface for testing.
type MockModelClient struct {
	mock.Mock
}

// Decide mocks the Decide method.
func (m *MockModelClient) Decide(ctx context.Context, req schemas.StepRequest) (schemas.Decision, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schemas.Decision), args.Error(1)
}

// MockActionHandler is a mock implementation of the ActionHandler interface for testing.
type MockActionHandler struct {
	mock.Mock
}

// Dispatch mocks the Dispatch method.
func (m *MockActionHandler) Dispatch(ctx context.Context, action schemas.Action) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}
