package httpjson

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ieltsdesk/backend/srvcerror"
)

type ErrorResponse struct {
	Success bool     `json:"success"` // always false
	ErrCode string   `json:"code,omitempty"`
	ErrMsg  string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	ID      string `json:"id,omitempty"`
}

// WriteJson encodes data as the whole response body.
func WriteJson(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}

func WriteSuccessJson(w http.ResponseWriter, data any) {
	WriteJson(w, http.StatusOK, data)
}

func WriteErrorJson(w http.ResponseWriter, errMsg string, statusCode int, errCode string) {
	WriteJson(w, statusCode, ErrorResponse{
		ErrMsg:  errMsg,
		ErrCode: errCode,
	})
}

func writeInternalErrorJson(w http.ResponseWriter) {
	WriteErrorJson(w,
		http.StatusText(http.StatusInternalServerError),
		http.StatusInternalServerError,
		srvcerror.ErrCodeInternalServerError)
}

func HandleError(logger *slog.Logger, w http.ResponseWriter, err error) {
	srvcErr := &srvcerror.Error{}
	if errors.As(err, &srvcErr) {
		if srvcErr.DebugInfo() != nil {
			logger.Warn("service error", "error", err, "debug", srvcErr.DebugInfo())
		} else {
			logger.Warn("service error", "error", err)
		}
		if srvcErr.HttpStatusCode() == http.StatusInternalServerError {
			logger.Error("internal server error", "error", err, "debug", srvcErr.DebugInfo())
		}
		WriteJson(w, srvcErr.HttpStatusCode(), ErrorResponse{
			ErrMsg:  srvcErr.Error(),
			ErrCode: srvcErr.ErrorCode(),
			Fields:  srvcErr.Fields(),
		})
		return
	}
	logger.Error("internal server error", "error", err)
	writeInternalErrorJson(w)
}
