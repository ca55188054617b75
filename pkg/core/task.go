package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Command is the invocation directive carried by a task.
type Command struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// Task is one planned tool invocation plus its eventual result.
// A task is immutable once queued except for the single Complete call.
type Task struct {
	Name    string   `json:"task_name"`
	Command *Command `json:"command,omitempty"`
	ID      int      `json:"task_id"`
	Result  *string  `json:"result,omitempty"`
}

// NewTask builds a pending task draft. The id is assigned by the queue.
func NewTask(name, command string, args map[string]string) *Task {
	if args == nil {
		args = map[string]string{}
	}
	return &Task{
		Name:    name,
		Command: &Command{Name: command, Args: args},
	}
}

// Completed reports whether a result has been recorded.
func (t *Task) Completed() bool {
	return t != nil && t.Result != nil
}

// Complete records the task result. Only the first call has any effect.
func (t *Task) Complete(result string) bool {
	if t == nil || t.Result != nil {
		return false
	}
	t.Result = &result
	return true
}

// CommandName returns the command name or an empty string.
func (t *Task) CommandName() string {
	if t == nil || t.Command == nil {
		return ""
	}
	return t.Command.Name
}

// Arg returns a single command argument.
func (t *Task) Arg(key string) string {
	if t == nil || t.Command == nil {
		return ""
	}
	return t.Command.Args[key]
}

// UnmarshalJSON decodes oracle task objects leniently. Non-string scalars are
// stringified; a command that is not an object is dropped so the task reads as
// structurally incomplete.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task{}
	if v, ok := raw["task_name"]; ok {
		t.Name = scalarString(v)
	}
	if v, ok := raw["task_id"]; ok {
		_ = json.Unmarshal(v, &t.ID)
	}
	if v, ok := raw["command"]; ok {
		var cmd Command
		if err := json.Unmarshal(v, &cmd); err == nil && !isNull(v) {
			t.Command = &cmd
		}
	}
	if v, ok := raw["result"]; ok && !isNull(v) {
		res := scalarString(v)
		t.Result = &res
	}
	return nil
}

// UnmarshalJSON keeps Args nil when the "args" key is absent or null.
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Command{}
	if v, ok := raw["name"]; ok {
		c.Name = strings.TrimSpace(scalarString(v))
	}
	if v, ok := raw["args"]; ok && !isNull(v) {
		var args map[string]json.RawMessage
		if err := json.Unmarshal(v, &args); err != nil {
			return nil
		}
		c.Args = make(map[string]string, len(args))
		for key, val := range args {
			c.Args[key] = scalarString(val)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	switch val := v.(type) {
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(val)
	default:
		return strings.TrimSpace(string(raw))
	}
}
