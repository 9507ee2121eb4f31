// Package jsonutil recovers JSON payloads from freeform model output.
//
// The LLM gateway and the remote coding agent both return JSON wrapped in
// prose, markdown code fences, or terminal escape codes. This package digs
// the first (or every) valid JSON value out of such text so callers can
// decode judgments, critiques, and proposal lists without fragile string
// surgery at each call site.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxInput caps how much text we are willing to scan. Gateway responses are
// bounded by model output limits; anything past this is a runaway payload.
const maxInput = 10 * 1024 * 1024

var (
	// ansiRE matches CSI escape sequences that leak into captured output.
	ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*[mGKHF]`)

	// fenceRE captures the body of a markdown code fence, with or without a
	// json language tag. (?s) lets the body span newlines; the lazy
	// quantifier stops at the first closing fence.
	fenceRE = regexp.MustCompile("(?s)```(?:json)?[ \\t]*\n(.*?)\n```")
)

// First returns the first valid JSON object or array found in text.
// Fenced blocks are preferred over bare brace matching since models that
// fence their JSON fence it deliberately.
func First(text string) (json.RawMessage, error) {
	cleaned, err := clean(text)
	if err != nil {
		return nil, err
	}
	values := scan(cleaned)
	if len(values) == 0 {
		return nil, fmt.Errorf("jsonutil: no JSON value in text")
	}
	return values[0], nil
}

// All returns every valid JSON object and array in text, in order of
// appearance. Brace candidates inside an already-captured fence are
// suppressed so the same value is not reported twice.
func All(text string) []json.RawMessage {
	cleaned, err := clean(text)
	if err != nil {
		return nil
	}
	return scan(cleaned)
}

// Into extracts the first JSON value from text and unmarshals it into
// target.
func Into(text string, target any) error {
	raw, err := First(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("jsonutil: decode: %w", err)
	}
	return nil
}

// clean strips a UTF-8 BOM and ANSI escapes, enforcing the input cap.
func clean(text string) (string, error) {
	if len(text) > maxInput {
		return "", fmt.Errorf("jsonutil: input exceeds %d bytes", maxInput)
	}
	text = strings.TrimPrefix(text, "\xef\xbb\xbf")
	return ansiRE.ReplaceAllString(text, ""), nil
}

// span is a half-open byte range [start, end) in the scanned text.
type span struct{ start, end int }

func (s span) contains(pos int) bool { return pos >= s.start && pos < s.end }

// scan applies both strategies to pre-cleaned text: fenced blocks first,
// then top-level brace/bracket matching outside any captured fence.
func scan(text string) []json.RawMessage {
	var values []json.RawMessage
	var fences []span

	for _, loc := range fenceRE.FindAllStringSubmatchIndex(text, -1) {
		if len(loc) < 4 {
			continue
		}
		body := strings.TrimSpace(text[loc[2]:loc[3]])
		if body == "" || !json.Valid([]byte(body)) {
			continue
		}
		fences = append(fences, span{loc[0], loc[1]})
		values = append(values, json.RawMessage(body))
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '{' && ch != '[' {
			continue
		}
		if insideFence(i, fences) {
			continue
		}
		end := closerIndex(text, i)
		if end < 0 {
			continue
		}
		candidate := text[i : end+1]
		if !json.Valid([]byte(candidate)) {
			continue
		}
		values = append(values, json.RawMessage(candidate))
	}

	return values
}

func insideFence(pos int, fences []span) bool {
	for _, f := range fences {
		if f.contains(pos) {
			return true
		}
	}
	return false
}

// closerIndex returns the index of the delimiter closing the '{' or '[' at
// start, or -1 when the text ends unbalanced. Delimiters inside quoted
// strings are ignored, and backslash escapes inside strings are honoured.
func closerIndex(text string, start int) int {
	open := text[start]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return -1
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
