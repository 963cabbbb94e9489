// Package client talks to the submissions API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ieltsdesk/backend/grammar"
	"github.com/ieltsdesk/backend/subm"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

// SubmitForm holds the fields of a student submission.
type SubmitForm struct {
	StudentName   string
	TaskType      string
	Question      string
	EssayText     string
	WordCount     int
	TimeSpent     string
	Pdf           []byte
	Image         []byte
	ImageFilename string
}

// Login stores the returned token on the client and returns it.
func (c *Client) Login(ctx context.Context, username string, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJson(ctx, http.MethodPost, "/api/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJson(ctx, http.MethodPost, "/api/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Submit uploads a submission and returns its id.
func (c *Client) Submit(ctx context.Context, form SubmitForm) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"studentName", form.StudentName},
		{"taskType", form.TaskType},
		{"question", form.Question},
		{"essayText", form.EssayText},
		{"wordCount", strconv.Itoa(form.WordCount)},
		{"timeSpent", form.TimeSpent},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	if err := writeFilePart(mw, "pdf", "essay.pdf", form.Pdf); err != nil {
		return "", err
	}
	if len(form.Image) > 0 {
		filename := form.ImageFilename
		if filename == "" {
			filename = "image.png"
		}
		if err := writeFilePart(mw, "image", filename, form.Image); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/submit", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.send(req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func writeFilePart(mw *multipart.Writer, field string, filename string, content []byte) error {
	if content == nil {
		return nil
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", field, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("writing %s part: %w", field, err)
	}
	return nil
}

func (c *Client) List(ctx context.Context, f subm.Filter) ([]subm.Submission, error) {
	query := url.Values{}
	if f.Search != "" {
		query.Set("search", f.Search)
	}
	if f.TaskType != "" {
		query.Set("taskType", f.TaskType)
	}
	if f.Date != "" {
		query.Set("date", f.Date)
	}
	if f.Checked != nil {
		if *f.Checked {
			query.Set("checked", "checked")
		} else {
			query.Set("checked", "unchecked")
		}
	}

	path := "/api/submissions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list []subm.Submission
	if err := c.doJson(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Get(ctx context.Context, id string) (subm.Submission, error) {
	var s subm.Submission
	err := c.doJson(ctx, http.MethodGet, "/api/submissions/"+url.PathEscape(id), nil, &s)
	return s, err
}

func (c *Client) SetChecked(ctx context.Context, id string, checked bool) (subm.Submission, error) {
	body, err := json.Marshal(map[string]bool{"checked": checked})
	if err != nil {
		return subm.Submission{}, err
	}
	var s subm.Submission
	err = c.doJson(ctx, http.MethodPatch, "/api/submissions/"+url.PathEscape(id), body, &s)
	return s, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJson(ctx, http.MethodDelete, "/api/submissions/"+url.PathEscape(id), nil, nil)
}

// DownloadPdf returns the stored PDF and the filename suggested by the
// server.
func (c *Client) DownloadPdf(ctx context.Context, id string) ([]byte, string, error) {
	return c.fetchPdf(ctx, "/api/download/"+url.PathEscape(id))
}

// GrammarPdf returns a freshly rendered PDF with grammar mistakes marked.
func (c *Client) GrammarPdf(ctx context.Context, id string) ([]byte, string, error) {
	return c.fetchPdf(ctx, "/api/submissions/"+url.PathEscape(id)+"/grammar-pdf")
}

func (c *Client) fetchPdf(ctx context.Context, path string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", decodeAPIError(resp)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading pdf: %w", err)
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return content, filename, nil
}

func (c *Client) GrammarCheck(ctx context.Context, text string) ([]grammar.Match, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Matches []grammar.Match `json:"matches"`
	}
	if err := c.doJson(ctx, http.MethodPost, "/api/grammar-check", body, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *Client) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJson(ctx context.Context, method string, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Error   string   `json:"error"`
		Fields  []string `json:"fields"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Fields = body.Fields
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
