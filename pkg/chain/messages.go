package chain

import "github.com/YunjiaXi/InfoDeepSeek/pkg/core"

// Messages are the localized texts of loop control events.
type Messages struct {
	PlanFailed    string
	ExecuteFailed string
	NoToolNeeded  string
	NoMoreTools   string
	StopThinking  string
	TasksFinished string
}

var messages = map[string]Messages{
	"en": {
		PlanFailed:    "Planning failed, no new task was created",
		ExecuteFailed: "Tool execution failed",
		NoToolNeeded:  "No tool is needed for this query",
		NoMoreTools:   "The collected information is sufficient, no more tools are needed",
		StopThinking:  "Reached the maximum number of planning steps, stop thinking",
		TasksFinished: "All planned tasks are finished",
	},
	"zh": {
		PlanFailed:    "任务规划失败，未生成新任务",
		ExecuteFailed: "工具执行失败",
		NoToolNeeded:  "该问题不需要使用工具",
		NoMoreTools:   "已有信息足够，不再需要使用工具",
		StopThinking:  "达到最大思考步数，停止思考",
		TasksFinished: "任务已全部完成",
	},
}

// MessagesFor returns the messages of lang, falling back to English.
func MessagesFor(lang string) Messages {
	if m, ok := messages[lang]; ok {
		return m
	}
	return messages["en"]
}

var labels = map[string]map[core.EventKind]string{
	"en": {
		core.EventThought:     "Thought: ",
		core.EventThinking:    "Thinking...",
		core.EventExecute:     "Action: ",
		core.EventObservation: "Observation: ",
		core.EventFinish:      "Finish: ",
		core.EventFail:        "Fail: ",
		core.EventConclusion:  "Conclusion: ",
		core.EventRanking:     "Ranking: ",
		core.EventAnswer:      "Answer: ",
	},
	"zh": {
		core.EventThought:     "思考：",
		core.EventThinking:    "思考中...",
		core.EventExecute:     "执行：",
		core.EventObservation: "观察：",
		core.EventFinish:      "结束：",
		core.EventFail:        "失败：",
		core.EventConclusion:  "结论：",
		core.EventRanking:     "排序：",
		core.EventAnswer:      "回答：",
	},
}

func labelFor(lang string, kind core.EventKind) string {
	set, ok := labels[lang]
	if !ok {
		set = labels["en"]
	}
	return set[kind]
}
