// Package run is the evaluation orchestrator: it expands the task matrix,
// drives the two-level worker pools, applies per-task and per-model
// deadlines, and records exactly one result per task.
package run

import (
	"fmt"

	"circuitbench/internal/dataset"
)

// Task is one (model, item, question) evaluation unit.
type Task struct {
	Model    string
	Item     *dataset.Item
	Question dataset.Question
}

// Key identifies a task across the whole run; the recorder uses it to
// guarantee exactly-once recording.
func (t Task) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.Model, t.Item.ID, t.Question.ID)
}

// BuildTasks expands the models × items × questions matrix in a stable
// order.
func BuildTasks(models []string, items []dataset.Item) []Task {
	var tasks []Task
	for _, model := range models {
		for i := range items {
			for _, q := range items[i].Questions {
				tasks = append(tasks, Task{Model: model, Item: &items[i], Question: q})
			}
		}
	}
	return tasks
}
