package auth

import (
	"net/http"

	"github.com/ieltsdesk/backend/srvcerror"
)

const ErrCodeInvalidCredentials = "invalid_credentials"

func newErrInvalidCredentials() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeInvalidCredentials,
		"Invalid credentials",
	).SetHttpStatusCode(http.StatusUnauthorized)
}
