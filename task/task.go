package task

import "github.com/rs/xid"

// Task is one record in a collection. The id is assigned at
// construction and never changes afterwards.
type Task struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// New builds a task with a freshly generated id.
func New(name, state string) Task {
	return Task{
		ID:    xid.New().String(),
		Name:  name,
		State: state,
	}
}
