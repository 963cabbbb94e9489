package submsrvc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ieltsdesk/backend/filestore"
	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/pdfdoc"
	"github.com/ieltsdesk/backend/srvcerror"
	"github.com/ieltsdesk/backend/subm"
	"github.com/ieltsdesk/backend/subm/submbolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAnnotator struct {
	matches []grammar.Match
	texts   []string
}

func (f *fakeAnnotator) Annotate(ctx context.Context, text string) []grammar.Match {
	f.texts = append(f.texts, text)
	return f.matches
}

type failingRepo struct {
	subm.Repo
}

func (failingRepo) Create(ctx context.Context, s subm.Submission) error {
	return errors.New("disk full")
}

// flakyStore fails deletes of the keys under prefix.
type flakyStore struct {
	filestore.Store
	prefix string
}

func (f flakyStore) Delete(ctx context.Context, key string) error {
	if strings.HasPrefix(key, f.prefix) {
		return errors.New("bucket unavailable")
	}
	return f.Store.Delete(ctx, key)
}

type testEnv struct {
	srvc      *SubmSrvc
	uploads   string
	annotator *fakeAnnotator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	repo, err := submbolt.Open(filepath.Join(dir, "subm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	uploads := filepath.Join(dir, "uploads")
	files, err := filestore.NewLocalStore(uploads)
	require.NoError(t, err)

	annotator := &fakeAnnotator{}
	srvc := NewSubmSrvc(repo, files, annotator)
	srvc.now = func() time.Time { return fixedNow }
	ids := []string{"id-1", "id-2", "id-3", "id-4"}
	srvc.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	return &testEnv{srvc: srvc, uploads: uploads, annotator: annotator}
}

func samplePdf(t *testing.T) []byte {
	t.Helper()
	content, err := pdfdoc.RenderBytes(pdfdoc.Record{StudentName: "Alice", EssayText: "Essay"})
	require.NoError(t, err)
	return content
}

func samplePng(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	return buf.Bytes()
}

func validParams(t *testing.T) SubmitParams {
	return SubmitParams{
		StudentName: "  Alice Smith ",
		TaskType:    "Task 2",
		Question:    " Discuss both views. ",
		EssayText:   "He go to school.",
		WordCount:   "4",
		TimeSpent:   "10m 5s",
		Pdf:         samplePdf(t),
	}
}

func requireSrvcErr(t *testing.T, err error, code string, status int) *srvcerror.Error {
	t.Helper()
	var srvcErr *srvcerror.Error
	require.ErrorAs(t, err, &srvcErr)
	assert.Equal(t, code, srvcErr.ErrorCode())
	assert.Equal(t, status, srvcErr.HttpStatusCode())
	return srvcErr
}

func TestSubmitStoresRecordAndFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.srvc.Submit(ctx, validParams(t))
	require.NoError(t, err)

	assert.Equal(t, "id-1", s.ID)
	assert.Equal(t, "Alice Smith", s.StudentName)
	assert.Equal(t, "Discuss both views.", s.Question)
	assert.Equal(t, 4, s.WordCount)
	assert.Equal(t, "10m 5s", s.TimeSpent)
	assert.Equal(t, "/uploads/pdfs/id-1.pdf", s.PdfPath)
	assert.Nil(t, s.ImagePath)
	assert.Equal(t, fixedNow, s.SubmittedAt)
	assert.False(t, s.Checked)

	assert.FileExists(t, filepath.Join(env.uploads, "pdfs", "id-1.pdf"))

	stored, err := env.srvc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, stored)
}

func TestSubmitDefaults(t *testing.T) {
	env := newTestEnv(t)
	p := validParams(t)
	p.WordCount = ""
	p.TimeSpent = ""

	s, err := env.srvc.Submit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, s.WordCount)
	assert.Equal(t, "0m 0s", s.TimeSpent)
}

func TestSubmitWithImage(t *testing.T) {
	tests := []struct {
		filename string
		wantExt  string
	}{
		{filename: "chart.JPG", wantExt: ".jpg"},
		{filename: "chart", wantExt: ".png"},
		{filename: "chart.exe", wantExt: ".png"},
	}
	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			env := newTestEnv(t)
			p := validParams(t)
			p.TaskType = "Task 1"
			p.Image = samplePng(t)
			p.ImageFilename = tc.filename

			s, err := env.srvc.Submit(context.Background(), p)
			require.NoError(t, err)
			require.NotNil(t, s.ImagePath)
			assert.Equal(t, "/uploads/images/id-1"+tc.wantExt, *s.ImagePath)
			assert.FileExists(t, filepath.Join(env.uploads, "images", "id-1"+tc.wantExt))

			content, err := env.srvc.OpenImage(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, p.Image, content)
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(p *SubmitParams)
		wantCode   string
		wantFields []string
	}{
		{
			name:       "missing text fields",
			mutate:     func(p *SubmitParams) { p.StudentName = " "; p.Question = "" },
			wantCode:   subm.ErrCodeValidationFailed,
			wantFields: []string{"studentName", "question"},
		},
		{
			name:       "bad word count",
			mutate:     func(p *SubmitParams) { p.WordCount = "many" },
			wantCode:   subm.ErrCodeValidationFailed,
			wantFields: []string{"wordCount"},
		},
		{
			name:       "negative word count",
			mutate:     func(p *SubmitParams) { p.WordCount = "-3" },
			wantCode:   subm.ErrCodeValidationFailed,
			wantFields: []string{"wordCount"},
		},
		{
			name:       "unknown task type",
			mutate:     func(p *SubmitParams) { p.TaskType = "Task 3" },
			wantCode:   subm.ErrCodeValidationFailed,
			wantFields: []string{"taskType"},
		},
		{
			name:       "no pdf",
			mutate:     func(p *SubmitParams) { p.Pdf = nil },
			wantCode:   subm.ErrCodePdfRequired,
			wantFields: []string{"pdf"},
		},
		{
			name:       "pdf is not a pdf",
			mutate:     func(p *SubmitParams) { p.Pdf = []byte("hello") },
			wantCode:   subm.ErrCodeInvalidPdf,
			wantFields: []string{"pdf"},
		},
		{
			name:       "image is not an image",
			mutate:     func(p *SubmitParams) { p.Image = []byte("plain text"); p.ImageFilename = "x.png" },
			wantCode:   subm.ErrCodeInvalidImage,
			wantFields: []string{"image"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			p := validParams(t)
			tc.mutate(&p)

			_, err := env.srvc.Submit(context.Background(), p)
			srvcErr := requireSrvcErr(t, err, tc.wantCode, http.StatusBadRequest)
			assert.Equal(t, tc.wantFields, srvcErr.Fields())

			list, err := env.srvc.List(context.Background(), subm.Filter{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSubmitMissingFieldsMessage(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.srvc.Submit(context.Background(), SubmitParams{})
	require.Error(t, err)
	assert.Equal(t, "Missing required fields: studentName, taskType, question", err.Error())
}

func TestSubmitCleansUpFilesWhenRecordFails(t *testing.T) {
	env := newTestEnv(t)
	env.srvc.repo = failingRepo{Repo: env.srvc.repo}

	p := validParams(t)
	p.Image = samplePng(t)
	p.ImageFilename = "chart.png"

	_, err := env.srvc.Submit(context.Background(), p)
	requireSrvcErr(t, err, srvcerror.ErrCodeInternalServerError, http.StatusInternalServerError)

	assert.NoFileExists(t, filepath.Join(env.uploads, "pdfs", "id-1.pdf"))
	assert.NoFileExists(t, filepath.Join(env.uploads, "images", "id-1.png"))
}

func TestListRejectsBadDate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.srvc.List(context.Background(), subm.Filter{Date: "March 1st"})
	requireSrvcErr(t, err, subm.ErrCodeValidationFailed, http.StatusBadRequest)
}

func TestSetChecked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, err := env.srvc.Submit(ctx, validParams(t))
	require.NoError(t, err)

	checked := true
	updated, err := env.srvc.SetChecked(ctx, s.ID, &checked)
	require.NoError(t, err)
	assert.True(t, updated.Checked)

	unchanged, err := env.srvc.SetChecked(ctx, s.ID, nil)
	require.NoError(t, err)
	assert.True(t, unchanged.Checked)

	_, err = env.srvc.SetChecked(ctx, "missing", &checked)
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)

	_, err = env.srvc.SetChecked(ctx, "missing", nil)
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)
}

func TestDeleteRemovesFilesAndRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := validParams(t)
	p.TaskType = "Task 1"
	p.Image = samplePng(t)
	p.ImageFilename = "chart.png"
	s, err := env.srvc.Submit(ctx, p)
	require.NoError(t, err)

	require.NoError(t, env.srvc.Delete(ctx, s.ID))

	assert.NoFileExists(t, filepath.Join(env.uploads, "pdfs", "id-1.pdf"))
	assert.NoFileExists(t, filepath.Join(env.uploads, "images", "id-1.png"))
	_, err = env.srvc.Get(ctx, s.ID)
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)

	err = env.srvc.Delete(ctx, s.ID)
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)
}

func TestDeleteToleratesMissingFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, err := env.srvc.Submit(ctx, validParams(t))
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(env.uploads, "pdfs", "id-1.pdf")))
	assert.NoError(t, env.srvc.Delete(ctx, s.ID))
}

func TestDeleteKeepsGoingWhenImageDeleteFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := validParams(t)
	p.TaskType = "Task 1"
	p.Image = samplePng(t)
	p.ImageFilename = "chart.png"
	s, err := env.srvc.Submit(ctx, p)
	require.NoError(t, err)

	env.srvc.files = flakyStore{Store: env.srvc.files, prefix: "images/"}
	require.NoError(t, env.srvc.Delete(ctx, s.ID))

	assert.NoFileExists(t, filepath.Join(env.uploads, "pdfs", "id-1.pdf"))
	_, err = env.srvc.Get(ctx, s.ID)
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)
}

func TestDeleteAbortsWhenPdfDeleteFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, err := env.srvc.Submit(ctx, validParams(t))
	require.NoError(t, err)

	env.srvc.files = flakyStore{Store: env.srvc.files, prefix: "pdfs/"}
	err = env.srvc.Delete(ctx, s.ID)
	requireSrvcErr(t, err, srvcerror.ErrCodeInternalServerError, http.StatusInternalServerError)

	got, err := env.srvc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.FileExists(t, filepath.Join(env.uploads, "pdfs", "id-1.pdf"))
}

func TestOpenPdf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := validParams(t)
	s, err := env.srvc.Submit(ctx, p)
	require.NoError(t, err)

	got, content, err := env.srvc.OpenPdf(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, p.Pdf, content)

	_, _, err = env.srvc.OpenPdf(ctx, "missing")
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)

	require.NoError(t, os.Remove(filepath.Join(env.uploads, "pdfs", "id-1.pdf")))
	_, _, err = env.srvc.OpenPdf(ctx, s.ID)
	requireSrvcErr(t, err, subm.ErrCodePdfNotFound, http.StatusNotFound)
}

func TestOpenImageWithoutImage(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.srvc.Submit(context.Background(), validParams(t))
	require.NoError(t, err)

	_, err = env.srvc.OpenImage(context.Background(), s.ID)
	requireSrvcErr(t, err, subm.ErrCodeImageNotFound, http.StatusNotFound)
}

func TestGrammarPdf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := validParams(t)
	p.TaskType = "Task 1"
	p.Image = samplePng(t)
	p.ImageFilename = "chart.png"
	s, err := env.srvc.Submit(ctx, p)
	require.NoError(t, err)

	env.annotator.matches = []grammar.Match{{Offset: 3, Length: 2, Message: "agreement"}}

	got, content, err := env.srvc.GrammarPdf(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF-")))
	assert.Equal(t, []string{"He go to school."}, env.annotator.texts)

	_, _, err = env.srvc.GrammarPdf(ctx, "missing")
	requireSrvcErr(t, err, subm.ErrCodeSubmissionNotFound, http.StatusNotFound)
}
