package core

import (
	"errors"
	"testing"
)

func TestTaskQueueFIFO(t *testing.T) {
	q := NewTaskQueue()
	if !q.IsEmpty() {
		t.Fatalf("expected empty queue")
	}
	for _, name := range []string{"a", "b", "c"} {
		task := NewTask(name, "web_search", map[string]string{"text": name})
		task.ID = q.NextID()
		q.Append(task)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 tasks, got %d", q.Len())
	}
	for i, want := range []string{"a", "b", "c"} {
		task, err := q.PopFront()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if task.Name != want {
			t.Fatalf("expected %q, got %q", want, task.Name)
		}
		if task.ID != i+1 {
			t.Fatalf("expected id %d, got %d", i+1, task.ID)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("expected queue drained")
	}
}

func TestTaskQueuePopEmpty(t *testing.T) {
	q := NewTaskQueue()
	task, err := q.PopFront()
	if task != nil {
		t.Fatalf("expected nil task")
	}
	if !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestTaskQueueIDsStrictlyIncreasing(t *testing.T) {
	q := NewTaskQueue()
	seen := map[int]bool{}
	last := 0
	for i := 0; i < 50; i++ {
		id := q.NextID()
		if id <= last {
			t.Fatalf("id %d not greater than %d", id, last)
		}
		if seen[id] {
			t.Fatalf("id %d reused", id)
		}
		seen[id] = true
		last = id
		if i%3 == 0 {
			q.Append(&Task{Name: "x", ID: id})
		}
		if i%5 == 0 && !q.IsEmpty() {
			if _, err := q.PopFront(); err != nil {
				t.Fatalf("pop: %v", err)
			}
		}
	}
}

func TestTaskQueueClearResetsCounter(t *testing.T) {
	q := NewTaskQueue()
	q.NextID()
	q.NextID()
	q.Append(&Task{Name: "x"})
	q.Clear()
	if !q.IsEmpty() {
		t.Fatalf("expected empty after clear")
	}
	if id := q.NextID(); id != 1 {
		t.Fatalf("expected id 1 after clear, got %d", id)
	}
}

func TestTaskQueueTaskNames(t *testing.T) {
	q := NewTaskQueue()
	q.Append(&Task{Name: "first"})
	q.Append(nil)
	q.Append(&Task{Name: "third"})
	names := q.TaskNames()
	if len(names) != 3 || names[0] != "first" || names[1] != "" || names[2] != "third" {
		t.Fatalf("unexpected names %v", names)
	}
}
