package submddb

import (
	"testing"
	"time"

	"github.com/ieltsdesk/backend/subm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowRoundTrip(t *testing.T) {
	img := subm.ImagePath("abc", ".png")
	s := subm.Submission{
		ID:          "abc",
		StudentName: "Alice Smith",
		TaskType:    subm.TaskType1,
		Question:    "Describe the chart.",
		EssayText:   "The chart shows...",
		WordCount:   3,
		TimeSpent:   "20m 0s",
		ImagePath:   &img,
		PdfPath:     subm.PdfPath("abc"),
		SubmittedAt: time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("EET", 2*60*60)),
		Checked:     true,
	}

	row := rowFromSubm(s)
	assert.Equal(t, "alice smith", row.StudentNameLower)
	assert.Equal(t, "2024-03-01", row.SubmittedDate)
	assert.Equal(t, "2024-03-01T21:30:00Z", row.SubmittedAt)

	back, err := row.toSubm()
	require.NoError(t, err)
	assert.True(t, s.SubmittedAt.Equal(back.SubmittedAt))
	back.SubmittedAt = s.SubmittedAt
	assert.Equal(t, s, back)
}

func TestRowWithoutTimestamp(t *testing.T) {
	row := rowFromSubm(subm.Submission{ID: "x"})
	assert.Empty(t, row.SubmittedAt)

	back, err := row.toSubm()
	require.NoError(t, err)
	assert.True(t, back.SubmittedAt.IsZero())
}

func TestBuildScanFilter(t *testing.T) {
	_, ok, err := buildScanFilter(subm.Filter{})
	require.NoError(t, err)
	assert.False(t, ok)

	checked := false
	expr, ok, err := buildScanFilter(subm.Filter{
		Search:   "ALI",
		TaskType: subm.TaskType2,
		Date:     "2024-03-01",
		Checked:  &checked,
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, expr.Filter())
	assert.Contains(t, *expr.Filter(), "contains")
	assert.Len(t, expr.Names(), 4)
	assert.Len(t, expr.Values(), 4)

	single, ok, err := buildScanFilter(subm.Filter{TaskType: subm.TaskType1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, single.Values(), 1)
}
