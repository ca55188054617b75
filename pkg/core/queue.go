package core

import (
	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// ErrEmptyQueue is returned by PopFront when no task is pending. Callers are
// expected to check IsEmpty first; the agent loop is single-threaded.
var ErrEmptyQueue = errors.New(errors.CodeEmptyQueue, "pop from empty task queue", nil)

// TaskQueue is a FIFO of pending tasks that also owns the id counter.
// It is not safe for concurrent use; each session owns its own queue.
type TaskQueue struct {
	tasks   []*Task
	counter int
}

// NewTaskQueue returns an empty queue whose first id will be 1.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Append inserts a task at the tail.
func (q *TaskQueue) Append(task *Task) {
	q.tasks = append(q.tasks, task)
}

// PopFront removes and returns the head task.
func (q *TaskQueue) PopFront() (*Task, error) {
	if len(q.tasks) == 0 {
		return nil, ErrEmptyQueue
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, nil
}

// NextID advances the counter and returns the new id.
func (q *TaskQueue) NextID() int {
	q.counter++
	return q.counter
}

// IsEmpty reports whether no task is pending.
func (q *TaskQueue) IsEmpty() bool {
	return len(q.tasks) == 0
}

// Len returns the number of pending tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// TaskNames lists pending task names in queue order.
func (q *TaskQueue) TaskNames() []string {
	names := make([]string, 0, len(q.tasks))
	for _, t := range q.tasks {
		if t == nil {
			names = append(names, "")
			continue
		}
		names = append(names, t.Name)
	}
	return names
}

// Clear drops all pending tasks and resets the id counter.
func (q *TaskQueue) Clear() {
	q.tasks = nil
	q.counter = 0
}
