package http

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/subm"
)

func (httpserver *HttpServer) viewPdf(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	id, err := submissionID(r)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	submission, content, err := httpserver.submSrvc.OpenPdf(r.Context(), id)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	writePdf(w, "inline", submission.ID+".pdf", content)
}

func (httpserver *HttpServer) downloadPdf(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	id, err := submissionID(r)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	submission, content, err := httpserver.submSrvc.OpenPdf(r.Context(), id)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	writePdf(w, "attachment", downloadFilename(submission, ""), content)
}

func (httpserver *HttpServer) grammarPdf(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	id, err := submissionID(r)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	submission, content, err := httpserver.submSrvc.GrammarPdf(r.Context(), id)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	writePdf(w, "attachment", downloadFilename(submission, "grammar"), content)
}

func writePdf(w http.ResponseWriter, disposition string, filename string, content []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// downloadFilename builds "submission-<name>-<task>[-suffix].pdf" with
// spaces replaced by dashes.
func downloadFilename(submission subm.Submission, suffix string) string {
	parts := []string{"submission", submission.StudentName, submission.TaskType}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	name := strings.Join(parts, "-")
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '-'
		case r == '/' || r == '\\' || r == '"' || unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	return name + ".pdf"
}
