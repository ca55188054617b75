package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Turn is one exchange of the conversation history.
type Turn struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// RecentTurns returns at most the last n turns.
func RecentTurns(history []Turn, n int) []Turn {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// AppendTurn returns a new history with one more turn. The input slice is
// never modified.
func AppendTurn(history []Turn, query, answer string) []Turn {
	out := make([]Turn, 0, len(history)+1)
	out = append(out, history...)
	return append(out, Turn{Query: query, Answer: answer})
}

// ParseHistory decodes a history given as a JSON array of turns. An empty
// input yields an empty history.
func ParseHistory(raw string) ([]Turn, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []Turn{}, nil
	}
	var history []Turn
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	if history == nil {
		history = []Turn{}
	}
	return history, nil
}
