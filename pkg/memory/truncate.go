package memory

import (
	"strings"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/tokenizer"
)

// Truncate keeps a rendered prompt within maxTokens.
//
// A prompt already within budget is returned unchanged. When the memory block
// can be located inside the prompt at token level, only the memory region is
// cut down (keeping its head and tail) so the surrounding instructions and
// query survive intact. Otherwise the whole prompt is cut the same way. When
// the non-memory text alone reaches the budget the prompt is left as is.
func Truncate(tok tokenizer.Tokenizer, prompt, memory string, maxTokens int) string {
	if tok == nil || maxTokens <= 0 {
		return prompt
	}
	tokens := tok.Encode(prompt)
	if len(tokens) <= maxTokens {
		return prompt
	}
	if memory == "" || !strings.Contains(prompt, memory) {
		return fit(tok, maxTokens, func(n int) []int { return HeadTail(tokens, n) })
	}
	memTokens := tok.Encode(memory)
	start := indexOf(tokens, memTokens)
	if start < 0 {
		return fit(tok, maxTokens, func(n int) []int { return HeadTail(tokens, n) })
	}
	other := len(tokens) - len(memTokens)
	if maxTokens <= other {
		return prompt
	}
	return fit(tok, maxTokens, func(n int) []int {
		if n <= other {
			return nil
		}
		out := make([]int, 0, n)
		out = append(out, tokens[:start]...)
		out = append(out, HeadTail(memTokens, n-other)...)
		return append(out, tokens[start+len(memTokens):]...)
	})
}

// fit decodes the largest cut whose text re-encodes within maxTokens. BPE
// merges across the splice can change the count, so the result is checked.
func fit(tok tokenizer.Tokenizer, maxTokens int, cut func(n int) []int) string {
	var text string
	for n := maxTokens; n > 0; n-- {
		ids := cut(n)
		if ids == nil {
			break
		}
		text = tok.Decode(ids)
		if len(tok.Encode(text)) <= maxTokens {
			return text
		}
	}
	return text
}

// HeadTail keeps the first floor(n/2) and the last ceil(n/2) ids.
func HeadTail(ids []int, n int) []int {
	if n <= 0 {
		return []int{}
	}
	if len(ids) <= n {
		return ids
	}
	head := n / 2
	tail := n - head
	out := make([]int, 0, n)
	out = append(out, ids[:head]...)
	return append(out, ids[len(ids)-tail:]...)
}

func indexOf(haystack, needle []int) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, id := range needle {
			if haystack[i+j] != id {
				continue outer
			}
		}
		return i
	}
	return -1
}
