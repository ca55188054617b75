package tools

import "context"

type finishTool struct{}

// Finish returns the tool planners use to end the session.
func Finish() Tool { return finishTool{} }

func (finishTool) Spec() Spec {
	return Spec{
		Name:        CommandFinish,
		LocalName:   "结束",
		Description: "Finish: call it when the completed tasks already answer the query",
		Params: []Param{
			{Name: "reason", Description: "why planning can stop", Required: true},
		},
	}
}

func (finishTool) Call(_ context.Context, args map[string]string) (Output, error) {
	return Text(args["reason"]), nil
}

type noTool struct{}

// NoTool returns the tool planners use when no tool call is needed.
func NoTool() Tool { return noTool{} }

func (noTool) Spec() Spec {
	return Spec{
		Name:        CommandNoTool,
		LocalName:   "不使用工具",
		Description: "No tool: call it when the query can be answered without any tool",
	}
}

func (noTool) Call(context.Context, map[string]string) (Output, error) {
	return Output{}, nil
}
