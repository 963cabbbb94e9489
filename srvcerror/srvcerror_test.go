package srvcerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ieltsdesk/backend/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDefaultsToInternalStatus(t *testing.T) {
	err := srvcerror.New("something", "something happened")
	assert.Equal(t, http.StatusInternalServerError, err.HttpStatusCode())
	assert.Equal(t, "something happened", err.Error())
	assert.Equal(t, "something", err.ErrorCode())
}

func TestErrorFoundThroughWrapping(t *testing.T) {
	dbg := errors.New("disk on fire")
	base := srvcerror.ErrBadRequest("bad input").SetDebug(dbg).SetFields("studentName", "question")
	wrapped := fmt.Errorf("submitting: %w", base)

	var srvcErr *srvcerror.Error
	require.True(t, errors.As(wrapped, &srvcErr))
	assert.Equal(t, http.StatusBadRequest, srvcErr.HttpStatusCode())
	assert.Equal(t, []string{"studentName", "question"}, srvcErr.Fields())
	assert.ErrorIs(t, wrapped, dbg)
}
