// internal/taskfile/taskfile.go
// Loading of task definitions from YAML files. A taskfile pairs the
// high-level instruction with its ordered todo decomposition; the
// decomposition is authored by the user, never generated here.
package taskfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/tasker-cli/api/schemas"
)

// document is the on-disk shape of a taskfile.
//
//	instruction: Book a table for two
//	todos:
//	  - description: Open the booking page
//	  - description: Fill the reservation form
//	    check: Is the confirmation banner visible?
type document struct {
	Instruction string `yaml:"instruction"`
	Todos       []struct {
		Description string `yaml:"description"`
		Check       string `yaml:"check"`
	} `yaml:"todos"`
}

// Load reads and validates a taskfile.
func Load(path string) (schemas.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schemas.Task{}, fmt.Errorf("cannot read taskfile %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes taskfile bytes into a validated task. Unknown fields are
// rejected so a typoed key fails loudly instead of silently dropping a todo
// attribute.
func Parse(data []byte) (schemas.Task, error) {
	var doc document
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return schemas.Task{}, fmt.Errorf("cannot parse taskfile: %w", err)
	}

	task := schemas.Task{
		Instruction: strings.TrimSpace(doc.Instruction),
		Todos:       make([]schemas.Todo, 0, len(doc.Todos)),
	}
	for _, t := range doc.Todos {
		task.Todos = append(task.Todos, schemas.Todo{
			Description: strings.TrimSpace(t.Description),
			Status:      schemas.TodoPending,
			Check:       strings.TrimSpace(t.Check),
		})
	}

	if err := task.Validate(); err != nil {
		return schemas.Task{}, fmt.Errorf("invalid taskfile: %w", err)
	}
	return task, nil
}
