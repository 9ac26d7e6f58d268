package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringOrStringsAcceptsBothForms(t *testing.T) {
	var m Mission
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","assignedTo":["u1","u2"]}`), &m))
	assert.Equal(t, StringOrStrings{"u1", "u2"}, m.AssignedTo)

	m = Mission{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","assignedTo":"[\"u3\"]"}`), &m))
	assert.Equal(t, StringOrStrings{"u3"}, m.AssignedTo)
}

func TestStringOrStringsMalformedYieldsEmpty(t *testing.T) {
	for _, raw := range []string{
		`{"assignedTo":"not json"}`,
		`{"assignedTo":"{broken"}`,
		`{"assignedTo":42}`,
		`{"assignedTo":null}`,
		`{"assignedTo":"\"scalar\""}`,
	} {
		var m Mission
		require.NoError(t, json.Unmarshal([]byte(raw), &m), "raw=%s", raw)
		assert.Empty(t, m.AssignedTo, "raw=%s", raw)
	}
}

func TestRawAnswersAcceptsBothForms(t *testing.T) {
	var r Report
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","answers":[{"type":"text","value":"ok"}]}`), &r))
	require.Len(t, r.Answers, 1)
	assert.Equal(t, "text", r.Answers[0].Type)

	r = Report{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","answers":"[{\"type\":\"rating\",\"value\":4}]"}`), &r))
	require.Len(t, r.Answers, 1)
	assert.Equal(t, "rating", r.Answers[0].Type)
}

func TestRawAnswersMalformedYieldsEmpty(t *testing.T) {
	for _, raw := range []string{
		`{"answers":"oops"}`,
		`{"answers":"[{"}`,
		`{"answers":7}`,
		`{"answers":null}`,
	} {
		var r Report
		require.NoError(t, json.Unmarshal([]byte(raw), &r), "raw=%s", raw)
		assert.Empty(t, r.Answers, "raw=%s", raw)
	}
}

func TestEmptyCollectionsMarshalAsArrays(t *testing.T) {
	b, err := json.Marshal(Mission{ID: "m1"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"assignedTo":[]`)
}
