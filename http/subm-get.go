package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/subm"
)

// submissionID reads the {id} path parameter. Ids that are not uuids can
// not name a submission.
func submissionID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", subm.NewErrSubmissionNotFound().SetDebug(err)
	}
	return id, nil
}

func (httpserver *HttpServer) getSubmission(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	id, err := submissionID(r)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	submission, err := httpserver.submSrvc.Get(r.Context(), id)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, submission)
}
