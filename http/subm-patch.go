package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/srvcerror"
)

func (httpserver *HttpServer) patchSubmission(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	id, err := submissionID(r)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	var request patchSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		httpjson.HandleError(logger, w, srvcerror.ErrBadRequest("Invalid JSON body").SetDebug(err))
		return
	}

	// anything but a JSON boolean leaves the flag untouched, null included
	var checked *bool
	if len(request.Checked) > 0 {
		if err := json.Unmarshal(request.Checked, &checked); err != nil {
			checked = nil
		}
	}

	updated, err := httpserver.submSrvc.SetChecked(r.Context(), id, checked)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, updated)
}
