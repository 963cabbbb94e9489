package subm

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

const DateLayout = "2006-01-02"

// Filter narrows a listing. Zero values match everything and all set
// fields must match.
type Filter struct {
	Search   string // case-insensitive substring of the student name
	TaskType string
	Date     string // YYYY-MM-DD, compared in UTC
	Checked  *bool
}

// ParseChecked maps the query value of the checked filter to a tri-state.
func ParseChecked(v string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return nil, nil
	case "checked", "true":
		t := true
		return &t, nil
	case "unchecked", "false":
		f := false
		return &f, nil
	default:
		return nil, fmt.Errorf("invalid checked filter %q", v)
	}
}

func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

func (f Filter) Matches(s Submission) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(s.StudentName), strings.ToLower(f.Search)) {
		return false
	}
	if f.TaskType != "" && s.TaskType != f.TaskType {
		return false
	}
	if f.Date != "" && (s.SubmittedAt.IsZero() || s.SubmittedAt.UTC().Format(DateLayout) != f.Date) {
		return false
	}
	if f.Checked != nil && s.Checked != *f.Checked {
		return false
	}
	return true
}

// Apply returns the matching submissions newest first. Submissions without
// a timestamp go last; ties are broken by id.
func (f Filter) Apply(all []Submission) []Submission {
	res := make([]Submission, 0, len(all))
	for _, s := range all {
		if f.Matches(s) {
			res = append(res, s)
		}
	}
	SortNewestFirst(res)
	return res
}

func SortNewestFirst(subms []Submission) {
	slices.SortStableFunc(subms, func(a, b Submission) int {
		az, bz := a.SubmittedAt.IsZero(), b.SubmittedAt.IsZero()
		switch {
		case az && !bz:
			return 1
		case !az && bz:
			return -1
		case !a.SubmittedAt.Equal(b.SubmittedAt):
			if a.SubmittedAt.After(b.SubmittedAt) {
				return -1
			}
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
}
