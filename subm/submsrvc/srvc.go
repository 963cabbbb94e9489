package submsrvc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ieltsdesk/backend/filestore"
	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/logger"
	"github.com/ieltsdesk/backend/pdfdoc"
	"github.com/ieltsdesk/backend/srvcerror"
	"github.com/ieltsdesk/backend/subm"
	"github.com/wailsapp/mimetype"
)

// Annotator finds grammar matches for rendering. It never fails.
type Annotator interface {
	Annotate(ctx context.Context, text string) []grammar.Match
}

type SubmSrvc struct {
	repo      subm.Repo
	files     filestore.Store
	annotator Annotator

	now   func() time.Time
	newID func() string
}

func NewSubmSrvc(repo subm.Repo, files filestore.Store, annotator Annotator) *SubmSrvc {
	return &SubmSrvc{
		repo:      repo,
		files:     files,
		annotator: annotator,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SubmitParams carries the raw form values of a submission.
type SubmitParams struct {
	StudentName string
	TaskType    string
	Question    string
	EssayText   string
	WordCount   string
	TimeSpent   string

	Pdf           []byte // nil when no pdf part was sent
	Image         []byte
	ImageFilename string
}

var allowedImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
}

func (s *SubmSrvc) Submit(ctx context.Context, p SubmitParams) (subm.Submission, error) {
	studentName := strings.TrimSpace(p.StudentName)
	taskType := strings.TrimSpace(p.TaskType)
	question := strings.TrimSpace(p.Question)

	wordCount := 0
	wordCountOk := true
	if wc := strings.TrimSpace(p.WordCount); wc != "" {
		n, err := strconv.Atoi(wc)
		if err != nil || n < 0 {
			wordCountOk = false
		}
		wordCount = n
	}

	var missing []string
	if studentName == "" {
		missing = append(missing, "studentName")
	}
	if taskType == "" {
		missing = append(missing, "taskType")
	}
	if question == "" {
		missing = append(missing, "question")
	}
	if !wordCountOk {
		missing = append(missing, "wordCount")
	}
	if len(missing) > 0 {
		return subm.Submission{}, subm.NewErrMissingFields(missing...)
	}
	if !subm.ValidTaskType(taskType) {
		return subm.Submission{}, subm.NewErrInvalidField("taskType",
			fmt.Sprintf("taskType must be %q or %q", subm.TaskType1, subm.TaskType2))
	}

	if p.Pdf == nil {
		return subm.Submission{}, subm.NewErrPdfRequired()
	}
	if !mimetype.Detect(p.Pdf).Is("application/pdf") {
		return subm.Submission{}, subm.NewErrInvalidPdf()
	}

	var imageExt, imageType string
	if len(p.Image) > 0 {
		mType := mimetype.Detect(p.Image)
		if !strings.HasPrefix(mType.String(), "image/") {
			return subm.Submission{}, subm.NewErrInvalidImage()
		}
		imageType = mType.String()
		imageExt = strings.ToLower(filepath.Ext(p.ImageFilename))
		if !allowedImageExts[imageExt] {
			imageExt = ".png"
		}
	}

	timeSpent := p.TimeSpent
	if strings.TrimSpace(timeSpent) == "" {
		timeSpent = "0m 0s"
	}

	id := s.newID()
	ctx = logger.WithSubmissionID(ctx, id)
	log := logger.FromContext(ctx)

	submission := subm.Submission{
		ID:          id,
		StudentName: studentName,
		TaskType:    taskType,
		Question:    question,
		EssayText:   p.EssayText,
		WordCount:   wordCount,
		TimeSpent:   timeSpent,
		PdfPath:     subm.PdfPath(id),
		SubmittedAt: s.now().UTC(),
	}

	if err := s.files.Put(ctx, submission.PdfKey(), p.Pdf, "application/pdf"); err != nil {
		return subm.Submission{}, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("storing pdf: %w", err))
	}

	if imageExt != "" {
		imagePath := subm.ImagePath(id, imageExt)
		submission.ImagePath = &imagePath
		imageKey, _ := submission.ImageKey()
		if err := s.files.Put(ctx, imageKey, p.Image, imageType); err != nil {
			s.removeFiles(ctx, submission)
			return subm.Submission{}, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("storing image: %w", err))
		}
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		s.removeFiles(ctx, submission)
		return subm.Submission{}, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("creating record: %w", err))
	}

	log.Info("submission created", "task_type", taskType, "word_count", wordCount, "has_image", submission.ImagePath != nil)
	return submission, nil
}

// removeFiles deletes the files of s, logging failures.
func (s *SubmSrvc) removeFiles(ctx context.Context, submission subm.Submission) {
	log := logger.FromContext(ctx)
	if err := s.files.Delete(ctx, submission.PdfKey()); err != nil {
		log.Error("failed to delete pdf", "error", err)
	}
	if key, ok := submission.ImageKey(); ok {
		if err := s.files.Delete(ctx, key); err != nil {
			log.Error("failed to delete image", "error", err)
		}
	}
}

func (s *SubmSrvc) List(ctx context.Context, f subm.Filter) ([]subm.Submission, error) {
	if f.Date != "" && !subm.ValidDate(f.Date) {
		return nil, subm.NewErrInvalidField("date", "date must be YYYY-MM-DD")
	}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("listing submissions: %w", err))
	}
	return list, nil
}

func (s *SubmSrvc) Get(ctx context.Context, id string) (subm.Submission, error) {
	submission, err := s.repo.Get(ctx, id)
	if err != nil {
		return subm.Submission{}, mapRepoErr(err)
	}
	return submission, nil
}

// SetChecked updates the checked flag. A nil value leaves the record as is.
func (s *SubmSrvc) SetChecked(ctx context.Context, id string, checked *bool) (subm.Submission, error) {
	if checked == nil {
		return s.Get(ctx, id)
	}
	submission, err := s.repo.SetChecked(ctx, id, *checked)
	if err != nil {
		return subm.Submission{}, mapRepoErr(err)
	}
	logger.FromContext(ctx).Info("submission checked flag set", "submission_id", id, "checked", *checked)
	return submission, nil
}

// Delete removes the files of a submission and then its record.
func (s *SubmSrvc) Delete(ctx context.Context, id string) error {
	submission, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}

	ctx = logger.WithSubmissionID(ctx, id)
	log := logger.FromContext(ctx)

	// once the pdf is gone the record must go too, so only a pdf failure aborts
	if err := s.files.Delete(ctx, submission.PdfKey()); err != nil {
		return srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("deleting pdf: %w", err))
	}
	if key, ok := submission.ImageKey(); ok {
		if err := s.files.Delete(ctx, key); err != nil {
			log.Error("failed to delete image, leaving it orphaned", "key", key, "error", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}

	log.Info("submission deleted")
	return nil
}

// OpenPdf returns the record and the bytes of its stored PDF.
func (s *SubmSrvc) OpenPdf(ctx context.Context, id string) (subm.Submission, []byte, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return subm.Submission{}, nil, err
	}
	content, err := s.files.Get(ctx, submission.PdfKey())
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return subm.Submission{}, nil, subm.NewErrPdfNotFound()
		}
		return subm.Submission{}, nil, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("reading pdf: %w", err))
	}
	return submission, content, nil
}

// OpenImage returns the bytes of the stored Task 1 image.
func (s *SubmSrvc) OpenImage(ctx context.Context, id string) ([]byte, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key, ok := submission.ImageKey()
	if !ok {
		return nil, subm.NewErrImageNotFound()
	}
	content, err := s.files.Get(ctx, key)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, subm.NewErrImageNotFound()
		}
		return nil, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("reading image: %w", err))
	}
	return content, nil
}

// GrammarPdf renders a fresh document for the submission with grammar
// mistakes marked. A failing grammar service yields an unmarked essay.
func (s *SubmSrvc) GrammarPdf(ctx context.Context, id string) (subm.Submission, []byte, error) {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return subm.Submission{}, nil, err
	}

	var image []byte
	if _, ok := submission.ImageKey(); ok {
		image, err = s.OpenImage(ctx, id)
		if err != nil {
			logger.FromContext(ctx).Warn("rendering without image", "submission_id", id, "error", err)
			image = nil
		}
	}

	matches := s.annotator.Annotate(ctx, submission.EssayText)
	runs := grammar.BuildRuns(submission.EssayText, grammar.Spans(matches))

	content, err := pdfdoc.RenderBytes(pdfdoc.Record{
		StudentName: submission.StudentName,
		TaskType:    submission.TaskType,
		Question:    submission.Question,
		WordCount:   submission.WordCount,
		TimeSpent:   submission.TimeSpent,
		Image:       image,
		EssayText:   submission.EssayText,
		Runs:        runs,
		Annotated:   true,
		SubmittedAt: submission.SubmittedAt,
	})
	if err != nil {
		return subm.Submission{}, nil, srvcerror.ErrInternalSE().SetDebug(fmt.Errorf("rendering grammar pdf: %w", err))
	}
	return submission, content, nil
}

func mapRepoErr(err error) error {
	if errors.Is(err, subm.ErrNotFound) {
		return subm.NewErrSubmissionNotFound()
	}
	return srvcerror.ErrInternalSE().SetDebug(err)
}
