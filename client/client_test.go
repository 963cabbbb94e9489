package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ieltsdesk/backend/auth"
	"github.com/ieltsdesk/backend/client"
	"github.com/ieltsdesk/backend/filestore"
	"github.com/ieltsdesk/backend/grammar"
	apihttp "github.com/ieltsdesk/backend/http"
	"github.com/ieltsdesk/backend/subm"
	"github.com/ieltsdesk/backend/subm/submbolt"
	"github.com/ieltsdesk/backend/subm/submsrvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGrammar struct {
	matches []grammar.Match
}

func (g staticGrammar) Check(ctx context.Context, text string) ([]grammar.Match, error) {
	return g.matches, nil
}

func (g staticGrammar) Annotate(ctx context.Context, text string) []grammar.Match {
	return g.matches
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	repo, err := submbolt.Open(filepath.Join(dir, "submissions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	files, err := filestore.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	checker := staticGrammar{matches: []grammar.Match{{Offset: 3, Length: 2, Message: "Agreement"}}}
	teacherAuth, err := auth.NewTeacherAuth("teacher", "secret", "",
		[]byte("client-test-key"), time.Hour, auth.NewCacheSessionStore(time.Minute))
	require.NoError(t, err)

	server := apihttp.NewHttpServer(apihttp.Options{Env: "test"},
		submsrvc.NewSubmSrvc(repo, files, checker), teacherAuth, checker)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientRoundTrip(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()
	c := client.New(ts.URL, ts.Client())

	id, err := c.Submit(ctx, client.SubmitForm{
		StudentName: "Mara Ozola",
		TaskType:    subm.TaskType2,
		Question:    "Discuss both views.",
		EssayText:   "He go to school.",
		WordCount:   4,
		TimeSpent:   "1m 2s",
		Pdf:         []byte("%PDF-1.4\n%%EOF\n"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = c.List(ctx, subm.Filter{})
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized))

	_, err = c.Login(ctx, "teacher", "wrong")
	require.Error(t, err)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)

	_, err = c.Login(ctx, "teacher", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Token())

	unchecked := false
	list, err := c.List(ctx, subm.Filter{Search: "mara", Checked: &unchecked})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	updated, err := c.SetChecked(ctx, id, true)
	require.NoError(t, err)
	assert.True(t, updated.Checked)

	list, err = c.List(ctx, subm.Filter{Checked: &unchecked})
	require.NoError(t, err)
	assert.Empty(t, list)

	content, filename, err := c.DownloadPdf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%%EOF\n", string(content))
	assert.Equal(t, "submission-Mara-Ozola-Task-2.pdf", filename)

	content, _, err = c.GrammarPdf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(content[:5]))

	matches, err := c.GrammarCheck(ctx, "He go to school.")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.NoError(t, c.Delete(ctx, id))
	_, err = c.Get(ctx, id)
	assert.True(t, client.IsStatus(err, http.StatusNotFound))

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())
}

func TestSubmitValidationError(t *testing.T) {
	ts := newServer(t)
	c := client.New(ts.URL, ts.Client())

	_, err := c.Submit(context.Background(), client.SubmitForm{TaskType: subm.TaskType1})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"studentName", "question"}, apiErr.Fields)
}
