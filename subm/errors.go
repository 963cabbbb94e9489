package subm

import (
	"net/http"
	"strings"

	"github.com/ieltsdesk/backend/srvcerror"
)

const ErrCodeValidationFailed = "validation_failed"

func NewErrMissingFields(fields ...string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeValidationFailed,
		"Missing required fields: "+strings.Join(fields, ", "),
	).SetHttpStatusCode(http.StatusBadRequest).SetFields(fields...)
}

func NewErrInvalidField(field string, msg string) *srvcerror.Error {
	return srvcerror.New(
		ErrCodeValidationFailed,
		msg,
	).SetHttpStatusCode(http.StatusBadRequest).SetFields(field)
}

const ErrCodeSubmissionNotFound = "submission_not_found"

func NewErrSubmissionNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeSubmissionNotFound,
		"Submission not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodePdfNotFound = "pdf_not_found"

func NewErrPdfNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodePdfNotFound,
		"PDF file not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodeImageNotFound = "image_not_found"

func NewErrImageNotFound() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeImageNotFound,
		"Image file not found",
	).SetHttpStatusCode(http.StatusNotFound)
}

const ErrCodePdfRequired = "pdf_required"

func NewErrPdfRequired() *srvcerror.Error {
	return srvcerror.New(
		ErrCodePdfRequired,
		"PDF file is required",
	).SetHttpStatusCode(http.StatusBadRequest).SetFields("pdf")
}

const ErrCodeInvalidPdf = "invalid_pdf"

func NewErrInvalidPdf() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidPdf,
		"Uploaded pdf is not a PDF document",
	).SetHttpStatusCode(http.StatusBadRequest).SetFields("pdf")
}

const ErrCodeInvalidImage = "invalid_image"

func NewErrInvalidImage() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidImage,
		"Uploaded image is not a supported image",
	).SetHttpStatusCode(http.StatusBadRequest).SetFields("image")
}
