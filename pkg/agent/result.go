// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
)

// Result is the outcome of one Chat call.
type Result struct {
	Response  string           `json:"response"`
	History   []core.Turn      `json:"history"`
	Chain     []core.Event     `json:"chain_msg"`
	ChainText string           `json:"chain_msg_str"`
	Exchanges []chain.Exchange `json:"full_llm_prompt_responses"`
	MoreInfo  MoreInfo         `json:"more_info"`

	SessionID     string `json:"-"`
	Iterations    int    `json:"-"`
	NoTaskPlanned bool   `json:"-"`
}

// MoreInfo carries the evaluation signals of the session. All fields are
// nil when no tool was available.
type MoreInfo struct {
	RankedWebpages  []core.Webpage  `json:"ranked_webpages"`
	AnswerAtK       map[int]*string `json:"answer_at_k"`
	OfflineResponse *string         `json:"offline_response"`
}

// IsZero reports whether no signal was produced.
func (m MoreInfo) IsZero() bool {
	return m.RankedWebpages == nil && m.AnswerAtK == nil && m.OfflineResponse == nil
}

// MarshalJSON renders an empty object for the no-tool path.
func (m MoreInfo) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("{}"), nil
	}
	type plain MoreInfo
	return json.Marshal(plain(m))
}
