// Package tokenizer provides the byte-level BPE tokenizer used for prompt
// budget accounting.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	tiktoken "github.com/tiktoken-go/tokenizer"
)

// Tokenizer converts text to token ids and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
}

// DefaultEncoding is the GPT-2 vocabulary the token budget is measured in.
const DefaultEncoding = tiktoken.R50kBase

// BPE wraps a tiktoken codec. The codec is read-only after construction, so
// one BPE can serve any number of concurrent sessions.
type BPE struct {
	codec tiktoken.Codec
}

// New loads the named encoding. The vocabularies are embedded in the
// tiktoken module, so nothing is fetched at runtime.
func New(encoding tiktoken.Encoding) (*BPE, error) {
	codec, err := tiktoken.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encoding, err)
	}
	return &BPE{codec: codec}, nil
}

var defaultBPE = sync.OnceValue(func() *BPE {
	tok, err := New(DefaultEncoding)
	if err != nil {
		panic(err)
	}
	return tok
})

// Default returns the shared GPT-2 tokenizer.
func Default() *BPE {
	return defaultBPE()
}

// Encode returns the token ids of text. A codec failure yields nil.
func (b *BPE) Encode(text string) []int {
	if text == "" {
		return nil
	}
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		return nil
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// Decode joins the text behind ids. A cut through a multi-byte rune leaves
// partial bytes, which are dropped.
func (b *BPE) Decode(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	in := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id >= 0 {
			in = append(in, uint(id))
		}
	}
	text, err := b.codec.Decode(in)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(text, "")
}

// Count returns the number of tokens in text.
func (b *BPE) Count(text string) int {
	return len(b.Encode(text))
}
