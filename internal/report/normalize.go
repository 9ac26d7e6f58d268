package report

import (
	"fmt"
	"log/slog"
	"math"

	"shopscout/internal/domain"
)

// Section is one display-ready answer row.
type Section struct {
	ID       int            `json:"id"`
	Type     string         `json:"type"`
	Question string         `json:"question"`
	Required bool           `json:"required"`
	Display  Display        `json:"display"`
	Raw      any            `json:"raw"`
	Matched  bool           `json:"matched"`
	question *domain.SurveyQuestion
}

// Summary aggregates the report for the header card.
type Summary struct {
	Total          int    `json:"total"`
	Answered       int    `json:"answered"`
	CompletionRate int    `json:"completionRate"`
	SubmittedAt    string `json:"submittedAt,omitempty"`
	Status         string `json:"status,omitempty"`
	MissionTitle   string `json:"missionTitle,omitempty"`
	UserName       string `json:"userName,omitempty"`
}

// Normalized is the display-ready form of a submitted report.
type Normalized struct {
	Sections []Section `json:"sections"`
	Summary  Summary   `json:"summary"`
	// Warnings flags data-integrity problems found while matching, such as
	// several survey questions sharing a type.
	Warnings []string `json:"warnings,omitempty"`
}

// Normalize reshapes a submitted report plus its survey's question
// definitions into a display-ready structure. It is pure and never fails:
// absent or malformed answers yield an empty-sections result with a zeroed
// summary.
func Normalize(r domain.Report, questions []domain.SurveyQuestion) Normalized {
	out := Normalized{
		Sections: []Section{},
		Summary: Summary{
			Total:        len(questions),
			SubmittedAt:  r.SubmittedAt,
			Status:       r.Status,
			MissionTitle: r.MissionTitle,
			UserName:     r.UserName,
		},
	}
	if len(r.Answers) == 0 {
		return out
	}

	// Answers join to questions by type, not by a unique id. Duplicate types
	// silently alias (last question of a type wins), so surface a warning
	// while keeping the observed matching behavior.
	byType := make(map[string]*domain.SurveyQuestion, len(questions))
	seen := make(map[string]int, len(questions))
	for i := range questions {
		q := &questions[i]
		seen[q.Type]++
		byType[q.Type] = q
	}
	for qtype, n := range seen {
		if n > 1 {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("survey has %d questions of type %q; answers are matched to the last one", n, qtype))
		}
	}

	for i, a := range r.Answers {
		sec := Section{
			ID:   i + 1,
			Type: a.Type,
			Raw:  a.Value,
		}
		if q, ok := byType[a.Type]; ok {
			sec.Question = q.Text
			sec.Required = q.IsRequired
			sec.Matched = true
			sec.question = q
		} else {
			sec.Question = fmt.Sprintf("Question %s", a.Type)
			slog.Debug("answer type has no matching survey question", "type", a.Type)
		}
		sec.Display = formatAnswer(a, sec.question)
		out.Sections = append(out.Sections, sec)
	}

	out.Summary.Answered = len(out.Sections)
	if out.Summary.Total > 0 {
		out.Summary.CompletionRate = int(math.Round(100 * float64(out.Summary.Answered) / float64(out.Summary.Total)))
	}
	return out
}
