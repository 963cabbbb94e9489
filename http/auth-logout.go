package http

import (
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/golang-jwt/jwt/v5/request"
	"github.com/ieltsdesk/backend/auth"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/srvcerror"
)

func (httpserver *HttpServer) authLogout(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	token, err := request.BearerExtractor{}.ExtractToken(r)
	if err != nil {
		httpjson.HandleError(logger, w, srvcerror.ErrUnauthorized().SetDebug(err))
		return
	}

	if err := httpserver.teacherAuth.Logout(token); err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		logger.Info("teacher logged out", "username", claims.Username)
	}
	httpjson.WriteSuccessJson(w, httpjson.SuccessResponse{Success: true})
}
