package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"shopscout/internal/domain"
)

// Statistics summarizes a collection of reports.
type Stats struct {
	Total     int             `json:"total"`
	ByStatus  map[string]int  `json:"byStatus"`
	ByMission map[string]int  `json:"byMission"`
	Recent    []domain.Report `json:"recent"`
}

const recentLimit = 5

// Statistics counts reports by status and by mission title. Recent is the
// first five entries in input order; callers wanting newest-first sort before
// calling.
func Statistics(reports []domain.Report) Stats {
	s := Stats{
		Total:     len(reports),
		ByStatus:  map[string]int{},
		ByMission: map[string]int{},
	}
	for _, r := range reports {
		s.ByStatus[r.Status]++
		title := r.MissionTitle
		if title == "" {
			title = fmt.Sprintf("Mission %s", r.MissionID)
		}
		s.ByMission[title]++
	}
	n := len(reports)
	if n > recentLimit {
		n = recentLimit
	}
	s.Recent = append([]domain.Report{}, reports[:n]...)
	return s
}

// Filters are the independent optional predicates applied by FilterAndSort.
// Zero values (and Status "all") skip the corresponding predicate.
type Filters struct {
	Status    string
	MissionID string
	UserID    string
	DateFrom  string // inclusive lower bound on submitted_at
	DateTo    string // inclusive upper bound on submitted_at
	SortBy    string // submitted_at (default), status, mission_id, user_id
	Ascending bool   // default descending
}

// FilterAndSort applies the filters then sorts. The sort is stable: equal
// keys keep their input order.
func FilterAndSort(reports []domain.Report, f Filters) []domain.Report {
	out := make([]domain.Report, 0, len(reports))
	for _, r := range reports {
		if f.Status != "" && f.Status != "all" && r.Status != f.Status {
			continue
		}
		if f.MissionID != "" && r.MissionID != f.MissionID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.DateFrom != "" && compareDates(r.SubmittedAt, f.DateFrom) < 0 {
			continue
		}
		if f.DateTo != "" && compareDates(r.SubmittedAt, endOfDay(f.DateTo)) > 0 {
			continue
		}
		out = append(out, r)
	}

	field := f.SortBy
	if field == "" {
		field = "submitted_at"
	}
	sort.SliceStable(out, func(i, j int) bool {
		less := sortKey(out[i], field) < sortKey(out[j], field)
		if f.Ascending {
			return less
		}
		return sortKey(out[i], field) > sortKey(out[j], field)
	})
	return out
}

func sortKey(r domain.Report, field string) string {
	switch field {
	case "status":
		return r.Status
	case "mission_id":
		return r.MissionID
	case "user_id":
		return r.UserID
	default:
		return r.SubmittedAt
	}
}

// compareDates compares two timestamps, tolerating date-only bounds against
// full timestamps. Unparsable values fall back to string comparison.
func compareDates(a, b string) int {
	ta, okA := parseWhen(a)
	tb, okB := parseWhen(b)
	if okA && okB {
		if ta.Before(tb) {
			return -1
		}
		if ta.After(tb) {
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// endOfDay widens a date-only upper bound to the last instant of that day so
// the bound stays inclusive against full timestamps.
func endOfDay(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Add(24*time.Hour - time.Nanosecond).Format(time.RFC3339Nano)
}

func parseWhen(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
