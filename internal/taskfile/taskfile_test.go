package taskfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

func TestParse_FullDocument(t *testing.T) {
	data := []byte(`
instruction: Book a table for two at Flour and Water
todos:
  - description: Open the booking page
  - description: Select a date and party size
  - description: Submit the reservation form
    check: Is a confirmation banner visible?
`)

	task, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "Book a table for two at Flour and Water", task.Instruction)
	require.Len(t, task.Todos, 3)

	for i, todo := range task.Todos {
		assert.Equal(t, schemas.TodoPending, todo.Status, "todo %d must load as pending", i)
	}
	assert.Empty(t, task.Todos[0].Check)
	assert.Equal(t, "Is a confirmation banner visible?", task.Todos[2].Check)
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{
			name: "missing instruction",
			data: "todos:\n  - description: something\n",
		},
		{
			name: "no todos",
			data: "instruction: do the thing\n",
		},
		{
			name: "empty todo description",
			data: "instruction: do the thing\ntodos:\n  - description: \"  \"\n",
		},
		{
			name: "unknown field",
			data: "instruction: do the thing\ntodos:\n  - descripton: typo\n",
		},
		{
			name: "not yaml",
			data: "{instruction: [unclosed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.yaml")
	content := []byte("instruction: Check the weather\ntodos:\n  - description: Open the forecast page\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	task, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Check the weather", task.Instruction)
	require.Len(t, task.Todos, 1)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
