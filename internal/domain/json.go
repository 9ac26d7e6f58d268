package domain

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// StringOrStrings is a list of identifiers that the backend sometimes encodes
// as a JSON array and sometimes as a JSON string containing an encoded array.
// Malformed input decodes to an empty list; decoding never fails.
type StringOrStrings []string

func (s *StringOrStrings) UnmarshalJSON(data []byte) error {
	*s = nil
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*s = direct
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		slog.Warn("assignedTo is neither array nor string, dropping", "raw", truncateRaw(data))
		return nil
	}
	var nested []string
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		slog.Warn("assignedTo string is not valid JSON, dropping", "raw", truncateRaw(data))
		return nil
	}
	*s = nested
	return nil
}

func (s StringOrStrings) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// RawAnswers is the answers payload of a report, accepted either as a native
// array of answers or as a JSON string containing an encoded array. Malformed
// input decodes to an empty list; decoding never fails.
type RawAnswers []Answer

func (a *RawAnswers) UnmarshalJSON(data []byte) error {
	*a = nil
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var direct []Answer
	if err := json.Unmarshal(data, &direct); err == nil {
		*a = direct
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		slog.Warn("answers is neither array nor string, dropping", "raw", truncateRaw(data))
		return nil
	}
	var nested []Answer
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		slog.Warn("answers string is not valid JSON, dropping", "raw", truncateRaw(data))
		return nil
	}
	*a = nested
	return nil
}

func (a RawAnswers) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Answer(a))
}

func truncateRaw(data []byte) string {
	const max = 120
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
