package tasker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
	"github.com/xkilldash9x/tasker-cli/internal/tasker"
)

func newTestRunner(t *testing.T) (*tasker.TodoRunner, *MockImageProvider, *MockModelClient, *MockActionHandler) {
	t.Helper()
	executor, images, model, actions := newTestExecutor(t)
	return tasker.NewTodoRunner(executor, setupTestLogger(t)), images, model, actions
}

func TestRun_CompletesWithinBudget(t *testing.T) {
	runner, images, model, actions := newTestRunner(t)

	images.On("Capture", mock.Anything).Return(schemas.Observation{PNG: []byte("x")}, nil)
	actions.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	// Two incomplete steps, then completion on the third.
	model.On("Decide", mock.Anything, mock.Anything).Return(clickDecision(1, 1, false), nil).Twice()
	model.On("Decide", mock.Anything, mock.Anything).Return(clickDecision(1, 1, true), nil).Once()

	done, err := runner.Run(context.Background(), "instr", 0, "todo", 10)
	require.NoError(t, err)
	assert.True(t, done)

	model.AssertNumberOfCalls(t, "Decide", 3)
}

func TestRun_BudgetExhausted(t *testing.T) {
	runner, images, model, actions := newTestRunner(t)

	images.On("Capture", mock.Anything).Return(schemas.Observation{PNG: []byte("x")}, nil)
	actions.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	model.On("Decide", mock.Anything, mock.Anything).Return(clickDecision(1, 1, false), nil)

	done, err := runner.Run(context.Background(), "instr", 0, "todo", 4)

	// Exhaustion is an ordinary outcome, not an error.
	require.NoError(t, err)
	assert.False(t, done)
	model.AssertNumberOfCalls(t, "Decide", 4)
}

func TestRun_CompletionOnLastAllowedStep(t *testing.T) {
	runner, images, model, actions := newTestRunner(t)

	images.On("Capture", mock.Anything).Return(schemas.Observation{PNG: []byte("x")}, nil)
	actions.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	model.On("Decide", mock.Anything, mock.Anything).Return(clickDecision(1, 1, false), nil).Twice()
	model.On("Decide", mock.Anything, mock.Anything).Return(clickDecision(1, 1, true), nil).Once()

	done, err := runner.Run(context.Background(), "instr", 0, "todo", 3)
	require.NoError(t, err)
	assert.True(t, done, "completion on exactly the last budgeted step still counts")
}

func TestRun_StepFailureStopsImmediately(t *testing.T) {
	runner, images, model, _ := newTestRunner(t)

	boom := errors.New("inference exploded")
	images.On("Capture", mock.Anything).Return(schemas.Observation{PNG: []byte("x")}, nil)
	model.On("Decide", mock.Anything, mock.Anything).Return(schemas.Decision{}, boom)

	done, err := runner.Run(context.Background(), "instr", 2, "fill the form", 10)
	assert.False(t, done)
	require.Error(t, err)

	var todoFailure *tasker.TodoFailure
	require.ErrorAs(t, err, &todoFailure)
	assert.Equal(t, 2, todoFailure.TodoIndex)
	assert.Equal(t, "fill the form", todoFailure.Todo)

	var stepFailure *tasker.StepFailure
	assert.ErrorAs(t, err, &stepFailure, "the step failure must stay reachable through the todo failure")
	assert.ErrorIs(t, err, boom)

	// No second attempt after a broken step.
	model.AssertNumberOfCalls(t, "Decide", 1)
}
