// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration and structured
// logging for information-seeking sessions.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for agent telemetry.
const (
	// Session attributes
	AttrSessionID     = "infoseek.session.id"
	AttrAgentName     = "infoseek.agent.name"
	AttrLang          = "infoseek.session.lang"
	AttrIteration     = "infoseek.agent.iteration"
	AttrMaxIter       = "infoseek.agent.max_iterations"
	AttrNoTaskPlanned = "infoseek.agent.no_task_planned"

	// Task attributes
	AttrTaskID       = "infoseek.task.id"
	AttrTaskName     = "infoseek.task.name"
	AttrTasksPlanned = "infoseek.tasks.planned"

	// Tool attributes
	AttrToolName       = "infoseek.tool.name"
	AttrToolArgs       = "infoseek.tool.arguments"
	AttrToolDurationMs = "infoseek.tool.duration_ms"
	AttrToolSuccess    = "infoseek.tool.success"
	AttrToolsCount     = "infoseek.tools.count"
	AttrToolsNames     = "infoseek.tools.names"

	// Conclusion attributes
	AttrWebpages    = "infoseek.conclusion.webpages"
	AttrRank        = "infoseek.answer.rank"
	AttrMessageType = "infoseek.message.type"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMMessages     = "gen_ai.request.messages"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMDurationMs   = "gen_ai.duration_ms"
)

// maxAttrLen bounds free-text attribute values.
const maxAttrLen = 200

// SessionAttributes returns common attributes for session spans.
func SessionAttributes(sessionID, agentName, lang string, maxIter int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
	}
	if agentName != "" {
		attrs = append(attrs, attribute.String(AttrAgentName, agentName))
	}
	if lang != "" {
		attrs = append(attrs, attribute.String(AttrLang, lang))
	}
	if maxIter > 0 {
		attrs = append(attrs, attribute.Int(AttrMaxIter, maxIter))
	}
	return attrs
}

// TaskAttributes returns attributes for a popped task.
func TaskAttributes(taskID int, name string, iteration int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrTaskID, taskID),
		attribute.String(AttrTaskName, Truncate(name, maxAttrLen)),
		attribute.Int(AttrIteration, iteration),
	}
}

// ToolCallAttributes returns attributes for a tool call span.
func ToolCallAttributes(name, args string, durationMs float64, success bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrToolName, name),
		attribute.Float64(AttrToolDurationMs, durationMs),
		attribute.Bool(AttrToolSuccess, success),
	}
	if args != "" {
		attrs = append(attrs, attribute.String(AttrToolArgs, Truncate(args, maxAttrLen)))
	}
	return attrs
}

// ToolsetAttributes returns attributes describing the active tools.
func ToolsetAttributes(names []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrToolsCount, len(names)),
	}
	if len(names) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrToolsNames, names))
	}
	return attrs
}

// LLMAttributes returns attributes for LLM call spans.
func LLMAttributes(model, provider string, msgCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	return attrs
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(inputTokens, outputTokens int, durationMs float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if durationMs > 0 {
		attrs = append(attrs, attribute.Float64(AttrLLMDurationMs, durationMs))
	}
	return attrs
}

// Truncate shortens s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !runeStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func runeStart(b byte) bool {
	return b&0xC0 != 0x80
}
