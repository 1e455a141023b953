package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/colonyops/tasky/internal/core/task"
)

const fence = "```"

// ExtractJSON pulls the JSON payload out of a model completion. It accepts
// bare JSON, JSON inside a markdown code fence (with or without a language
// tag) and JSON surrounded by prose, including prose that itself contains
// brackets or braces. The result is the first complete JSON array or object
// found scanning left to right; text after it is ignored.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty completion", task.ErrMalformedOutput)
	}

	if inner, ok := unfence(s); ok {
		s = inner
	}

	unterminated := false
	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}

		value, err := firstValue(s[i:])
		if err == nil {
			return value, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			unterminated = true
		}
	}

	if unterminated {
		return "", fmt.Errorf("%w: unterminated JSON value", task.ErrMalformedOutput)
	}
	return "", fmt.Errorf("%w: no JSON value found", task.ErrMalformedOutput)
}

// firstValue decodes the JSON value at the start of s and returns its text.
func firstValue(s string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	return s[:dec.InputOffset()], nil
}

// unfence returns the body of the first fenced block in s. An opening fence
// without a closing one yields everything after the opening line.
func unfence(s string) (string, bool) {
	open := strings.Index(s, fence)
	if open < 0 {
		return "", false
	}

	body := s[open+len(fence):]
	// Drop the info string ("json", "JSON", ...) on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if info := strings.TrimSpace(body[:nl]); !strings.ContainsAny(info, "[{") {
			body = body[nl+1:]
		}
	}

	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}

	return strings.TrimSpace(body), true
}
