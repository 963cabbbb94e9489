package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/httpjson"
)

func (httpserver *HttpServer) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	id, err := submissionID(r)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	if err := httpserver.submSrvc.Delete(r.Context(), id); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, httpjson.SuccessResponse{Success: true})
}
