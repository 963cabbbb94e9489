package subm

import (
	"strings"
	"time"

	"github.com/ieltsdesk/backend/filestore"
)

const (
	TaskType1 = "Task 1"
	TaskType2 = "Task 2"
)

// Submission is one essay handed in by a student. ID doubles as the base
// name of the stored PDF.
type Submission struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName"`
	TaskType    string    `json:"taskType"`
	Question    string    `json:"question"`
	EssayText   string    `json:"essayText"`
	WordCount   int       `json:"wordCount"`
	TimeSpent   string    `json:"timeSpent"`
	ImagePath   *string   `json:"imagePath"`
	PdfPath     string    `json:"pdfPath"`
	SubmittedAt time.Time `json:"submittedAt"`
	Checked     bool      `json:"checked"`
}

func ValidTaskType(taskType string) bool {
	return taskType == TaskType1 || taskType == TaskType2
}

const uploadsPrefix = "/uploads/"

func PdfPath(id string) string {
	return uploadsPrefix + filestore.PdfKey(id)
}

func ImagePath(id string, ext string) string {
	return uploadsPrefix + filestore.ImageKey(id, ext)
}

// ImageKey returns the file store key of the image, if any.
func (s Submission) ImageKey() (string, bool) {
	if s.ImagePath == nil {
		return "", false
	}
	return strings.TrimPrefix(*s.ImagePath, uploadsPrefix), true
}

// PdfKey returns the file store key of the PDF.
func (s Submission) PdfKey() string {
	return strings.TrimPrefix(s.PdfPath, uploadsPrefix)
}
