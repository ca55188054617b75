// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

// Verdict is the outcome of judging a popped task.
type Verdict int

const (
	Continue Verdict = iota
	StopMalformed
	StopFinish
	StopNoTool
	StopUnknown
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case StopMalformed:
		return "malformed"
	case StopFinish:
		return "finish"
	case StopNoTool:
		return "no_tool"
	case StopUnknown:
		return "unknown_command"
	default:
		return "invalid"
	}
}

// Decision is a verdict plus the text logged with it.
type Decision struct {
	Verdict Verdict
	Message string
}

// Stop reports whether the loop must terminate.
func (d Decision) Stop() bool { return d.Verdict != Continue }

// Judge decides whether task may be executed. planRound counts planner calls
// so far, starting at 1; a no-tool answer in the first round means no tool was
// ever needed. Structural checks run before any name lookup.
func Judge(task *core.Task, planRound int, registry *tools.Registry, msgs chain.Messages) Decision {
	if task == nil || task.Name == "" || task.Command == nil || task.Command.Name == "" || task.Command.Args == nil {
		name := ""
		if task != nil {
			name = task.Name
		}
		return Decision{Verdict: StopMalformed, Message: name}
	}

	switch canonicalCommand(task.Command.Name) {
	case tools.CommandFinish:
		return Decision{Verdict: StopFinish, Message: tools.Arg(task.Command.Args, "reason")}
	case tools.CommandNoTool:
		if planRound <= 1 {
			return Decision{Verdict: StopNoTool, Message: msgs.NoToolNeeded}
		}
		return Decision{Verdict: StopNoTool, Message: msgs.NoMoreTools}
	}

	if registry == nil || !registry.Has(canonicalCommand(task.Command.Name)) {
		return Decision{Verdict: StopUnknown, Message: msgs.NoToolNeeded}
	}
	return Decision{Verdict: Continue}
}

func canonicalCommand(name string) string {
	if name == tools.CommandSearchAlias {
		return tools.CommandWebSearch
	}
	return name
}
