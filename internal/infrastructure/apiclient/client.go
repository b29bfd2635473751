package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
	"issuetracker/internal/interfaces/httpapi"
)

// Error is a non-2xx API response. Message is the server's error field, or
// a generic description when the body carried none.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to the issue API. It sets no request timeout: a hung call
// blocks until ctx is cancelled.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("api base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, errs.Wrapf(err, "parse api base url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: trimmed, http: httpClient}, nil
}

// IssueKey is the resource path of one issue, used as its cache key.
func IssueKey(id string) string {
	return httpapi.IssuesPath + "/" + url.PathEscape(id)
}

// IssuesKey is the resource path of the collection with an optional filter.
func IssuesKey(status string) string {
	if status == "" {
		return httpapi.IssuesPath
	}
	return httpapi.IssuesPath + "?status=" + url.QueryEscape(status)
}

// Fetch GETs path and returns the raw JSON body.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, fallbackMessage(path))
}

func (c *Client) CreateIssue(ctx context.Context, input httpapi.CreateIssueRequest) (domainissue.Issue, error) {
	body, err := c.do(ctx, http.MethodPost, httpapi.IssuesPath, input, "Failed to create issue")
	if err != nil {
		return domainissue.Issue{}, err
	}
	return DecodeIssue(body)
}

func (c *Client) UpdateIssue(ctx context.Context, id string, input httpapi.UpdateIssueRequest) (domainissue.Issue, error) {
	body, err := c.do(ctx, http.MethodPatch, IssueKey(id), input, "Failed to update issue")
	if err != nil {
		return domainissue.Issue{}, err
	}
	return DecodeIssue(body)
}

func (c *Client) DeleteIssue(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, IssueKey(id), nil, "Failed to delete issue")
	return err
}

func DecodeIssue(body []byte) (domainissue.Issue, error) {
	var resp httpapi.IssueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainissue.Issue{}, errs.Wrap(err, "decode issue response")
	}
	return resp.Issue, nil
}

func DecodeIssues(body []byte) ([]domainissue.Issue, error) {
	var resp httpapi.IssuesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.Wrap(err, "decode issues response")
	}
	return resp.Issues, nil
}

func (c *Client) do(ctx context.Context, method string, path string, payload any, fallback string) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.Wrap(err, "marshal request")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, errs.Wrap(err, "create request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, data, fallback)
	}
	return data, nil
}

func decodeError(status int, data []byte, fallback string) error {
	var body httpapi.ErrorResponse
	if json.Unmarshal(data, &body) == nil && strings.TrimSpace(body.Error) != "" {
		return &Error{StatusCode: status, Message: body.Error}
	}
	return &Error{StatusCode: status, Message: fallback}
}

func fallbackMessage(path string) string {
	if strings.HasPrefix(path, httpapi.IssuesPath+"/") {
		return "Failed to fetch issue"
	}
	return "Failed to fetch issues"
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

