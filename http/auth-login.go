package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/srvcerror"
)

func (httpserver *HttpServer) authLogin(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	var request loginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrBadRequest("Invalid JSON body").SetDebug(err))
		return
	}

	logger.Info("received login request", "username", request.Username)

	token, err := httpserver.teacherAuth.Login(r.Context(), request.Username, request.Password)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteSuccessJson(w, httpjson.SuccessResponse{Success: true, Token: token})
}
