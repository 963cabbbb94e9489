package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/srvcerror"
)

func (httpserver *HttpServer) grammarCheck(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var request grammarCheckRequest
	// a missing body checks as empty text
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		httpjson.HandleError(logger, w, srvcerror.ErrBadRequest("Invalid JSON body").SetDebug(err))
		return
	}

	matches, err := httpserver.grammar.Check(r.Context(), request.Text)
	if err != nil {
		logger.Error("grammar check failed", "error", err, "text_length", len(request.Text))
		httpjson.WriteJson(w, http.StatusInternalServerError, grammarCheckResponse{
			Matches: []grammar.Match{},
			Error:   grammar.ErrGrammarCheckFailed().Error(),
		})
		return
	}
	if matches == nil {
		matches = []grammar.Match{}
	}

	httpjson.WriteSuccessJson(w, grammarCheckResponse{Matches: matches})
}
