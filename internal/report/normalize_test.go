package report

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopscout/internal/domain"
)

func TestNormalizeEmptyAnswers(t *testing.T) {
	questions := []domain.SurveyQuestion{
		{Type: "text", Text: "How was it?"},
		{Type: "rating", Text: "Rate it", MaxRating: 5},
	}
	got := Normalize(domain.Report{ID: "r1"}, questions)
	assert.Empty(t, got.Sections)
	assert.Equal(t, 2, got.Summary.Total)
	assert.Equal(t, 0, got.Summary.Answered)
	assert.Equal(t, 0, got.Summary.CompletionRate)
}

func TestNormalizeMalformedAnswersStringYieldsEmpty(t *testing.T) {
	var r domain.Report
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","answers":"{garbage"}`), &r))
	got := Normalize(r, []domain.SurveyQuestion{{Type: "text", Text: "Q"}})
	assert.Empty(t, got.Sections)
	assert.Equal(t, 0, got.Summary.Answered)
}

func TestNormalizeSummaryAndMatching(t *testing.T) {
	r := domain.Report{
		ID:           "r1",
		Status:       "submitted",
		SubmittedAt:  "2026-03-01T10:00:00Z",
		MissionTitle: "Cafe audit",
		UserName:     "Ada",
		Answers: domain.RawAnswers{
			{Type: "text", Value: "Great service"},
			{Type: "rating", Value: float64(4)},
			{Type: "teleport", Value: "zap"},
		},
	}
	questions := []domain.SurveyQuestion{
		{Type: "text", Text: "Describe your visit", IsRequired: true},
		{Type: "rating", Text: "Overall score", MaxRating: 5},
		{Type: "checkboxes", Text: "What did you try?"},
	}
	got := Normalize(r, questions)
	require.Len(t, got.Sections, 3)

	assert.Equal(t, 1, got.Sections[0].ID)
	assert.Equal(t, "Describe your visit", got.Sections[0].Question)
	assert.True(t, got.Sections[0].Required)
	assert.True(t, got.Sections[0].Matched)

	// unmatched answer gets a synthetic label
	assert.Equal(t, "Question teleport", got.Sections[2].Question)
	assert.False(t, got.Sections[2].Matched)

	assert.Equal(t, 3, got.Summary.Total)
	assert.Equal(t, 3, got.Summary.Answered)
	assert.Equal(t, 100, got.Summary.CompletionRate)
	assert.Equal(t, "Cafe audit", got.Summary.MissionTitle)
	assert.Equal(t, "Ada", got.Summary.UserName)
	assert.Empty(t, got.Warnings)
}

func TestNormalizeCompletionRateRounds(t *testing.T) {
	r := domain.Report{Answers: domain.RawAnswers{{Type: "text", Value: "x"}}}
	questions := []domain.SurveyQuestion{{Type: "text"}, {Type: "rating"}, {Type: "checkboxes"}}
	got := Normalize(r, questions)
	assert.Equal(t, 33, got.Summary.CompletionRate)
}

func TestNormalizeWarnsOnDuplicateQuestionTypes(t *testing.T) {
	r := domain.Report{Answers: domain.RawAnswers{{Type: "text", Value: "hi"}}}
	questions := []domain.SurveyQuestion{
		{Type: "text", Text: "First"},
		{Type: "text", Text: "Second"},
	}
	got := Normalize(r, questions)
	require.Len(t, got.Warnings, 1)
	// last question of the type wins
	assert.Equal(t, "Second", got.Sections[0].Question)
}

func TestFormatText(t *testing.T) {
	long := "This answer is considerably longer than fifty characters in total."
	d := formatAnswer(domain.Answer{Type: "text", Value: long}, nil)
	assert.Equal(t, long, d.Value)
	assert.Equal(t, long[:50]+"...", d.Preview)

	short := formatAnswer(domain.Answer{Type: "text", Value: "brief"}, nil)
	assert.Equal(t, "brief", short.Preview)
}

func TestFormatTextPreviewKeepsRunesIntact(t *testing.T) {
	// A multibyte rune straddling the limit must not be split.
	accented := strings.Repeat("a", 49) + "é" + strings.Repeat("b", 20)
	d := formatAnswer(domain.Answer{Type: "text", Value: accented}, nil)
	assert.True(t, utf8.ValidString(d.Preview))
	assert.Equal(t, strings.Repeat("a", 49)+"é...", d.Preview)
	assert.Equal(t, 50, utf8.RuneCountInString(strings.TrimSuffix(d.Preview, "...")))

	cyrillic := strings.Repeat("д", 60)
	d = formatAnswer(domain.Answer{Type: "text", Value: cyrillic}, nil)
	assert.True(t, utf8.ValidString(d.Preview))
	assert.Equal(t, strings.Repeat("д", 50)+"...", d.Preview)
}

func TestFormatRatingTiers(t *testing.T) {
	q := &domain.SurveyQuestion{Type: "rating", MaxRating: 5}

	d := formatAnswer(domain.Answer{Type: "rating", Value: "4"}, q)
	assert.Equal(t, "4/5", d.Value)
	assert.Equal(t, "green", d.Color)
	assert.Equal(t, "★★★★☆", d.Stars)

	d = formatAnswer(domain.Answer{Type: "rating", Value: float64(3)}, q)
	assert.Equal(t, "yellow", d.Color)

	d = formatAnswer(domain.Answer{Type: "rating", Value: float64(2)}, q)
	assert.Equal(t, "red", d.Color)
	assert.Equal(t, "★★☆☆☆", d.Stars)

	// max rating defaults to 5 without a matched question
	d = formatAnswer(domain.Answer{Type: "rating", Value: float64(5)}, nil)
	assert.Equal(t, "5/5", d.Value)
	assert.Equal(t, "★★★★★", d.Stars)
}

func TestFormatMultipleChoiceContext(t *testing.T) {
	q := &domain.SurveyQuestion{
		Type:    "multiple_choice",
		Options: []domain.QuestionOption{{Text: "Yes"}, {Text: "No"}, {Text: "Maybe"}},
	}
	d := formatAnswer(domain.Answer{Type: "multiple_choice", Value: "Yes"}, q)
	assert.Equal(t, "Yes", d.Value)
	assert.Equal(t, "Options: Yes, No, Maybe", d.Context)
}

func TestFormatCheckboxes(t *testing.T) {
	q := &domain.SurveyQuestion{
		Type:    "checkboxes",
		Options: []domain.QuestionOption{{Text: "A"}, {Text: "B"}, {Text: "C"}},
	}
	d := formatAnswer(domain.Answer{Type: "checkboxes", Value: []any{true, false, true}}, q)
	assert.Equal(t, "A, C", d.Value)
	assert.Equal(t, 2, d.Count)

	d = formatAnswer(domain.Answer{Type: "checkboxes", Value: []any{false, false, false}}, q)
	assert.Equal(t, "none selected", d.Value)
	assert.Equal(t, 0, d.Count)
}

func TestFormatImagesNormalizesToSlice(t *testing.T) {
	d := formatAnswer(domain.Answer{Type: "image_upload", Value: "https://cdn/img1.jpg"}, nil)
	assert.Equal(t, "1 image", d.Value)
	assert.Equal(t, []string{"https://cdn/img1.jpg"}, d.Images)

	d = formatAnswer(domain.Answer{Type: "image_upload", Value: []any{"a.jpg", "b.jpg"}}, nil)
	assert.Equal(t, "2 images", d.Value)
	assert.Len(t, d.Images, 2)
}

func TestFormatGPS(t *testing.T) {
	d := formatAnswer(domain.Answer{
		Type:  "gps_capture",
		Value: map[string]any{"lat": 34.05216, "lng": -118.24368},
	}, nil)
	assert.Equal(t, "Lat: 34.0522, Lng: -118.2437", d.Value)
	assert.Contains(t, d.MapURL, "google.com/maps")

	bad := formatAnswer(domain.Answer{Type: "gps_capture", Value: "nowhere"}, nil)
	assert.Equal(t, "Invalid coordinates", bad.Value)
	assert.Equal(t, "red", bad.Color)
}

func TestFormatAudioAndGeneric(t *testing.T) {
	d := formatAnswer(domain.Answer{Type: "audio_recording", Value: "https://cdn/a.ogg"}, nil)
	assert.Equal(t, "https://cdn/a.ogg", d.AudioURL)

	g := formatAnswer(domain.Answer{Type: "mystery", Value: float64(42)}, nil)
	assert.Equal(t, "42", g.Value)
	assert.Equal(t, "Other", g.Badge)
}
