package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"shopscout/internal/domain"
)

// Display is the formatted payload for one answer. Which extras are set
// depends on the answer type.
type Display struct {
	Value   string `json:"displayValue"`
	Color   string `json:"color,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Badge   string `json:"badge,omitempty"`
	Context string `json:"context,omitempty"`

	Preview  string   `json:"preview,omitempty"`  // text
	Stars    string   `json:"stars,omitempty"`    // rating
	Count    int      `json:"count,omitempty"`    // checkboxes
	Images   []string `json:"images,omitempty"`   // image_upload
	MapURL   string   `json:"mapUrl,omitempty"`   // gps_capture
	AudioURL string   `json:"audioUrl,omitempty"` // audio_recording
}

const (
	colorGreen  = "green"
	colorYellow = "yellow"
	colorRed    = "red"
	colorGray   = "gray"

	textPreviewLimit = 50
	defaultMaxRating = 5
)

// formatAnswer dispatches on the answer type. Unknown types fall through to a
// generic stringified rendering; malformed values render an error-flavored
// result instead of failing.
func formatAnswer(a domain.Answer, q *domain.SurveyQuestion) Display {
	switch a.Type {
	case domain.AnswerText:
		return formatText(a.Value)
	case domain.AnswerRating:
		return formatRating(a.Value, q)
	case domain.AnswerMultipleChoice:
		return formatMultipleChoice(a.Value, q)
	case domain.AnswerCheckboxes:
		return formatCheckboxes(a.Value, q)
	case domain.AnswerImageUpload:
		return formatImages(a.Value)
	case domain.AnswerGPSCapture:
		return formatGPS(a.Value)
	case domain.AnswerAudioRecording:
		return formatAudio(a.Value)
	default:
		return formatGeneric(a)
	}
}

func formatText(value any) Display {
	text := stringify(value)
	d := Display{Value: text, Icon: "text", Badge: "Text"}
	// The preview limit counts runes, not bytes, so multibyte answers are
	// never cut mid-rune.
	if runes := []rune(text); len(runes) > textPreviewLimit {
		d.Preview = string(runes[:textPreviewLimit]) + "..."
	} else {
		d.Preview = text
	}
	return d
}

func formatRating(value any, q *domain.SurveyQuestion) Display {
	maxRating := defaultMaxRating
	if q != nil && q.MaxRating > 0 {
		maxRating = q.MaxRating
	}
	n, ok := toInt(value)
	if !ok {
		return Display{Value: stringify(value), Color: colorGray, Icon: "star", Badge: "Rating"}
	}
	color := colorRed
	switch {
	case n >= 4:
		color = colorGreen
	case n >= 3:
		color = colorYellow
	}
	filled := n
	if filled > maxRating {
		filled = maxRating
	}
	if filled < 0 {
		filled = 0
	}
	return Display{
		Value: fmt.Sprintf("%d/%d", n, maxRating),
		Color: color,
		Icon:  "star",
		Badge: "Rating",
		Stars: strings.Repeat("★", filled) + strings.Repeat("☆", maxRating-filled),
	}
}

func formatMultipleChoice(value any, q *domain.SurveyQuestion) Display {
	d := Display{Value: stringify(value), Icon: "list", Badge: "Choice"}
	if q != nil && len(q.Options) > 0 {
		texts := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			texts = append(texts, opt.Text)
		}
		d.Context = "Options: " + strings.Join(texts, ", ")
	}
	return d
}

func formatCheckboxes(value any, q *domain.SurveyQuestion) Display {
	flags := toBools(value)
	var selected []string
	for i, on := range flags {
		if !on {
			continue
		}
		if q != nil && i < len(q.Options) {
			selected = append(selected, q.Options[i].Text)
		} else {
			selected = append(selected, fmt.Sprintf("Option %d", i+1))
		}
	}
	d := Display{Icon: "check-square", Badge: "Checkboxes", Count: len(selected)}
	if len(selected) == 0 {
		d.Value = "none selected"
		d.Color = colorGray
	} else {
		d.Value = strings.Join(selected, ", ")
	}
	return d
}

func formatImages(value any) Display {
	var urls []string
	switch v := value.(type) {
	case string:
		if v != "" {
			urls = []string{v}
		}
	case []string:
		urls = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}
	}
	noun := "images"
	if len(urls) == 1 {
		noun = "image"
	}
	return Display{
		Value:  fmt.Sprintf("%d %s", len(urls), noun),
		Icon:   "image",
		Badge:  "Images",
		Images: urls,
	}
}

func formatGPS(value any) Display {
	lat, lng, ok := toCoordinates(value)
	if !ok {
		return Display{Value: "Invalid coordinates", Color: colorRed, Icon: "map-pin", Badge: "GPS"}
	}
	return Display{
		Value:  fmt.Sprintf("Lat: %.4f, Lng: %.4f", lat, lng),
		Icon:   "map-pin",
		Badge:  "GPS",
		MapURL: fmt.Sprintf("https://www.google.com/maps?q=%v,%v", lat, lng),
	}
}

func formatAudio(value any) Display {
	return Display{
		Value:    "Audio recording",
		Icon:     "mic",
		Badge:    "Audio",
		AudioURL: stringify(value),
	}
}

func formatGeneric(a domain.Answer) Display {
	return Display{
		Value: stringify(a.Value),
		Icon:  "help",
		Badge: "Other",
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// toInt accepts the numeric shapes JSON decoding produces, plus numeric
// strings: rating values arrive both ways.
func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

func toBools(value any) []bool {
	switch v := value.(type) {
	case []bool:
		return v
	case []any:
		out := make([]bool, len(v))
		for i, item := range v {
			b, _ := item.(bool)
			out[i] = b
		}
		return out
	default:
		return nil
	}
}

func toCoordinates(value any) (lat, lng float64, ok bool) {
	m, isMap := value.(map[string]any)
	if !isMap {
		return 0, 0, false
	}
	lat, latOK := toFloat(m["lat"])
	lng, lngOK := toFloat(m["lng"])
	return lat, lng, latOK && lngOK
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
