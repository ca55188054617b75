// SPDX-License-Identifier: Apache-2.0
// Package jsonfix recovers JSON lists from free-text oracle output.
//
// Repair is a fixed chain of pure fixes tried in order. Each fix either
// returns a changed string or reports that it has nothing to offer; the chain
// stops at the first string that parses or after MaxAttempts rounds.
package jsonfix

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// MaxAttempts bounds the number of repair rounds.
const MaxAttempts = 5

// Kind tags a parse outcome.
type Kind int

const (
	// Malformed means no list could be recovered.
	Malformed Kind = iota
	// Ok means Items holds the decoded list elements.
	Ok
)

func (k Kind) String() string {
	if k == Ok {
		return "ok"
	}
	return "malformed"
}

// Result is the tagged outcome of ParseList.
type Result struct {
	Kind  Kind
	Items []json.RawMessage
	// Raw is the text after extraction and repair.
	Raw string
	Err error
}

// OK reports whether a list was recovered.
func (r Result) OK() bool { return r.Kind == Ok }

// Fix is one repair step. It returns the fixed text and true, or the input
// and false when it has nothing to change.
type Fix func(text string, syntaxErr error) (string, bool)

// DefaultFixes is the repair chain in the order it is tried.
var DefaultFixes = []Fix{
	FixInvalidEscape,
	QuotePropertyNames,
	RemoveTrailingCommas,
	BalanceBraces,
}

// ExtractList returns the substring between the first '[' and the last ']'.
// Text without such a region is returned unchanged.
func ExtractList(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

// Correct applies the repair chain until the text parses. Valid input is
// returned unchanged. When nothing helps the last candidate is returned.
func Correct(text string) string {
	fixed, _ := correct(text, DefaultFixes)
	return fixed
}

func correct(text string, fixes []Fix) (string, error) {
	candidate := text
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		err := validate(candidate)
		if err == nil {
			return candidate, nil
		}
		changed := false
		for _, fix := range fixes {
			next, ok := fix(candidate, err)
			if ok && next != candidate {
				candidate = next
				changed = true
				break
			}
		}
		if !changed {
			return candidate, err
		}
	}
	return candidate, validate(candidate)
}

// ParseList extracts, repairs and decodes a JSON list. A lone JSON object is
// treated as a one-element list.
func ParseList(text string) Result {
	fixed, err := correct(ExtractList(text), DefaultFixes)
	if err != nil {
		return Result{Kind: Malformed, Raw: fixed, Err: err}
	}
	trimmed := strings.TrimSpace(fixed)
	switch {
	case strings.HasPrefix(trimmed, "["):
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return Result{Kind: Malformed, Raw: fixed, Err: err}
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return Result{Kind: Ok, Items: items, Raw: fixed}
	case strings.HasPrefix(trimmed, "{"):
		return Result{Kind: Ok, Items: []json.RawMessage{json.RawMessage(trimmed)}, Raw: fixed}
	default:
		return Result{Kind: Malformed, Raw: fixed, Err: errNotList}
	}
}

var errNotList = errors.New("jsonfix: value is not a list")

func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return errEmpty
	}
	var v any
	return json.Unmarshal([]byte(text), &v)
}

var errEmpty = errors.New("jsonfix: empty input")

// FixInvalidEscape drops the backslash of every invalid escape sequence,
// re-decoding after each removal until the decoder reports something else.
func FixInvalidEscape(text string, syntaxErr error) (string, bool) {
	fixed := text
	for err := syntaxErr; ; err = validate(fixed) {
		pos, ok := invalidEscapeAt(fixed, err)
		if !ok {
			break
		}
		fixed = fixed[:pos] + fixed[pos+1:]
	}
	return fixed, fixed != text
}

func invalidEscapeAt(text string, syntaxErr error) (int, bool) {
	var se *json.SyntaxError
	if !errors.As(syntaxErr, &se) || !strings.Contains(se.Error(), "escape") {
		return 0, false
	}
	pos := int(se.Offset) - 2
	if pos < 0 || pos >= len(text) || text[pos] != '\\' {
		return 0, false
	}
	return pos, true
}

var propertyName = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

// QuotePropertyNames wraps bare object keys in double quotes.
func QuotePropertyNames(text string, syntaxErr error) (string, bool) {
	if syntaxErr == nil || !strings.Contains(syntaxErr.Error(), "object key") {
		return text, false
	}
	fixed := propertyName.ReplaceAllString(text, `$1"$2"$3`)
	return fixed, fixed != text
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// RemoveTrailingCommas drops commas that directly precede a closing bracket.
func RemoveTrailingCommas(text string, syntaxErr error) (string, bool) {
	if syntaxErr == nil {
		return text, false
	}
	fixed := trailingComma.ReplaceAllString(text, "$1")
	return fixed, fixed != text
}

// BalanceBraces appends missing closing braces or strips surplus trailing
// ones, then closes a list left open. The fix only applies when the result
// parses.
func BalanceBraces(text string, syntaxErr error) (string, bool) {
	if syntaxErr == nil {
		return text, false
	}
	fixed := text
	open := strings.Count(fixed, "{")
	closed := strings.Count(fixed, "}")
	switch {
	case open > closed:
		trimmed := strings.TrimRight(fixed, whitespace)
		suffix := ""
		if strings.HasPrefix(strings.TrimSpace(trimmed), "[") && strings.HasSuffix(trimmed, "]") {
			trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, "]"), whitespace)
			suffix = "]"
		}
		fixed = trimmed + strings.Repeat("}", open-closed) + suffix
	case closed > open:
		for surplus := closed - open; surplus > 0; surplus-- {
			trimmed := strings.TrimRight(fixed, whitespace)
			if !strings.HasSuffix(trimmed, "}") {
				break
			}
			fixed = strings.TrimSuffix(trimmed, "}")
		}
	}
	if ob, cb := strings.Count(fixed, "["), strings.Count(fixed, "]"); ob > cb {
		fixed = strings.TrimRight(fixed, whitespace) + strings.Repeat("]", ob-cb)
	}
	if validate(fixed) != nil {
		return text, false
	}
	return fixed, fixed != text
}

const whitespace = " \t\r\n"
