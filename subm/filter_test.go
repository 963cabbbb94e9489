package subm_test

import (
	"testing"
	"time"

	"github.com/ieltsdesk/backend/subm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func ids(subms []subm.Submission) []string {
	out := make([]string, 0, len(subms))
	for _, s := range subms {
		out = append(out, s.ID)
	}
	return out
}

func fixtures() []subm.Submission {
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	return []subm.Submission{
		{ID: "a", StudentName: "Alice Smith", TaskType: subm.TaskType1, SubmittedAt: day(1, 9)},
		{ID: "b", StudentName: "Bob Jones", TaskType: subm.TaskType2, SubmittedAt: day(2, 9), Checked: true},
		{ID: "c", StudentName: "alice cooper", TaskType: subm.TaskType2, SubmittedAt: day(2, 23)},
		{ID: "d", StudentName: "Dan", TaskType: subm.TaskType1},
		{ID: "e", StudentName: "Eve", TaskType: subm.TaskType1, SubmittedAt: day(2, 9)},
	}
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter subm.Filter
		want   []string
	}{
		{name: "no filter sorts newest first, ties by id, zero last", filter: subm.Filter{}, want: []string{"c", "b", "e", "a", "d"}},
		{name: "search is case insensitive", filter: subm.Filter{Search: "ALICE"}, want: []string{"c", "a"}},
		{name: "task type", filter: subm.Filter{TaskType: subm.TaskType1}, want: []string{"e", "a", "d"}},
		{name: "date", filter: subm.Filter{Date: "2024-03-02"}, want: []string{"c", "b", "e"}},
		{name: "checked", filter: subm.Filter{Checked: boolPtr(true)}, want: []string{"b"}},
		{name: "unchecked", filter: subm.Filter{Checked: boolPtr(false)}, want: []string{"c", "e", "a", "d"}},
		{name: "filters combine", filter: subm.Filter{Search: "alice", TaskType: subm.TaskType2, Date: "2024-03-02"}, want: []string{"c"}},
		{name: "nothing matches", filter: subm.Filter{Search: "zed"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(tc.filter.Apply(fixtures())))
		})
	}
}

func TestFilterDateUsesUtc(t *testing.T) {
	riga := time.FixedZone("EET", 2*60*60)
	s := subm.Submission{ID: "x", SubmittedAt: time.Date(2024, 3, 2, 1, 0, 0, 0, riga)}

	assert.True(t, subm.Filter{Date: "2024-03-01"}.Matches(s))
	assert.False(t, subm.Filter{Date: "2024-03-02"}.Matches(s))
}

func TestParseChecked(t *testing.T) {
	for _, v := range []string{"", "all", "ALL"} {
		got, err := subm.ParseChecked(v)
		require.NoError(t, err)
		assert.Nil(t, got, v)
	}
	for _, v := range []string{"checked", "true"} {
		got, err := subm.ParseChecked(v)
		require.NoError(t, err)
		assert.Equal(t, boolPtr(true), got, v)
	}
	for _, v := range []string{"unchecked", "false"} {
		got, err := subm.ParseChecked(v)
		require.NoError(t, err)
		assert.Equal(t, boolPtr(false), got, v)
	}
	_, err := subm.ParseChecked("maybe")
	assert.Error(t, err)
}

func TestValidDate(t *testing.T) {
	assert.True(t, subm.ValidDate("2024-02-29"))
	assert.False(t, subm.ValidDate("2023-02-29"))
	assert.False(t, subm.ValidDate("01/03/2024"))
}

func TestSubmissionKeys(t *testing.T) {
	img := subm.ImagePath("id", ".jpg")
	s := subm.Submission{ID: "id", PdfPath: subm.PdfPath("id"), ImagePath: &img}

	assert.Equal(t, "pdfs/id.pdf", s.PdfKey())
	key, ok := s.ImageKey()
	assert.True(t, ok)
	assert.Equal(t, "images/id.jpg", key)

	s.ImagePath = nil
	_, ok = s.ImageKey()
	assert.False(t, ok)
}
