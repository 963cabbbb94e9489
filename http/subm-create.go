package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/ieltsdesk/backend/httpjson"
	"github.com/ieltsdesk/backend/srvcerror"
	"github.com/ieltsdesk/backend/subm/submsrvc"
)

const (
	ErrCodeUploadFailed    = "upload_failed"
	ErrCodePayloadTooLarge = "payload_too_large"
)

func newErrUploadFailed() *srvcerror.Error {
	return srvcerror.New(ErrCodeUploadFailed, "File upload failed").
		SetHttpStatusCode(http.StatusBadRequest)
}

func newErrPayloadTooLarge(limit int64) *srvcerror.Error {
	return srvcerror.New(ErrCodePayloadTooLarge,
		fmt.Sprintf("Upload exceeds the limit of %d bytes", limit)).
		SetHttpStatusCode(http.StatusRequestEntityTooLarge)
}

// multipart parts above this size are spooled to temporary files
const multipartMemory = 8 << 20

func (httpserver *HttpServer) createSubmission(w http.ResponseWriter, r *http.Request) {
	logger := httplog.LogEntry(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, httpserver.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpjson.HandleError(logger, w, newErrPayloadTooLarge(tooLarge.Limit).SetDebug(err))
			return
		}
		httpjson.HandleError(logger, w, newErrUploadFailed().SetDebug(err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	pdf, _, err := readFormFile(r, "pdf")
	if err != nil {
		httpjson.HandleError(logger, w, newErrUploadFailed().SetDebug(err))
		return
	}
	image, imageHeader, err := readFormFile(r, "image")
	if err != nil {
		httpjson.HandleError(logger, w, newErrUploadFailed().SetDebug(err))
		return
	}

	params := submsrvc.SubmitParams{
		StudentName: r.FormValue("studentName"),
		TaskType:    r.FormValue("taskType"),
		Question:    r.FormValue("question"),
		EssayText:   r.FormValue("essayText"),
		WordCount:   r.FormValue("wordCount"),
		TimeSpent:   r.FormValue("timeSpent"),
		Pdf:         pdf,
		Image:       image,
	}
	if imageHeader != nil {
		params.ImageFilename = imageHeader.Filename
	}

	created, err := httpserver.submSrvc.Submit(r.Context(), params)
	if err != nil {
		httpjson.HandleError(logger, w, err)
		return
	}

	httpjson.WriteJson(w, http.StatusCreated, httpjson.SuccessResponse{Success: true, ID: created.ID})
}

// readFormFile returns nil content and header when the part is absent.
func readFormFile(r *http.Request, field string) ([]byte, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening form file %q: %w", field, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("reading form file %q: %w", field, err)
	}
	if content == nil {
		content = []byte{}
	}
	return content, header, nil
}
