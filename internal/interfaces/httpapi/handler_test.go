package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "issuetracker/internal/infrastructure/persistence/sqlite/repository"
	"issuetracker/internal/usecase/issues"
)

func setupHandler(t *testing.T) http.Handler {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "issues.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Issue{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	svc := issues.NewService(sqliterepo.NewIssueRepository(db), nil)
	return NewHandler(context.Background(), svc)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func createIssue(t *testing.T, h http.Handler, body map[string]string) domainissue.Issue {
	t.Helper()

	rr := doRequest(t, h, http.MethodPost, IssuesPath, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rr.Code, rr.Body.String())
	}
	return decodeBody[IssueResponse](t, rr).Issue
}

func listIssues(t *testing.T, h http.Handler, query string) []domainissue.Issue {
	t.Helper()

	rr := doRequest(t, h, http.MethodGet, IssuesPath+query, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, body=%s", rr.Code, rr.Body.String())
	}
	return decodeBody[IssuesResponse](t, rr).Issues
}

func containsIssue(items []domainissue.Issue, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}

func TestCreateUpdateFilterScenario(t *testing.T) {
	h := setupHandler(t)

	created := createIssue(t, h, map[string]string{
		"title":       "Fix login bug",
		"description": "Users are unable to log in with their credentials",
	})
	if created.Status != domainissue.StatusOpen {
		t.Fatalf("created status = %q, want OPEN", created.Status)
	}
	if created.ID == "" || created.CreatedAt.IsZero() || created.UpdatedAt.Before(created.CreatedAt) {
		t.Fatalf("created = %+v", created)
	}

	rr := doRequest(t, h, http.MethodPatch, IssuesPath+"/"+created.ID, map[string]string{"status": "DONE"})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body=%s", rr.Code, rr.Body.String())
	}
	updated := decodeBody[IssueResponse](t, rr).Issue
	if updated.Status != domainissue.StatusDone || updated.Title != "Fix login bug" {
		t.Fatalf("updated = %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt did not increase: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}

	if !containsIssue(listIssues(t, h, "?status=DONE"), created.ID) {
		t.Fatalf("issue missing from status=DONE")
	}
	if containsIssue(listIssues(t, h, "?status=OPEN"), created.ID) {
		t.Fatalf("issue present in status=OPEN")
	}
}

func TestGetRoundTrip(t *testing.T) {
	h := setupHandler(t)

	created := createIssue(t, h, map[string]string{
		"title":       "Add dark mode",
		"description": "Implement dark mode theme",
		"status":      "IN_PROGRESS",
	})

	rr := doRequest(t, h, http.MethodGet, IssuesPath+"/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, body=%s", rr.Code, rr.Body.String())
	}
	got := decodeBody[IssueResponse](t, rr).Issue
	if got.ID != created.ID || got.Title != "Add dark mode" || got.Description != "Implement dark mode theme" || got.Status != domainissue.StatusInProgress {
		t.Fatalf("get = %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("timestamps differ: %+v vs %+v", got, created)
	}
}

func TestListFilterIsCaseInsensitiveAndOrdered(t *testing.T) {
	h := setupHandler(t)

	first := createIssue(t, h, map[string]string{"title": "a", "description": "d", "status": "IN_PROGRESS"})
	createIssue(t, h, map[string]string{"title": "b", "description": "d"})
	third := createIssue(t, h, map[string]string{"title": "c", "description": "d", "status": "IN_PROGRESS"})

	for _, query := range []string{"?status=IN_PROGRESS", "?status=in_progress", "?status=In_Progress"} {
		items := listIssues(t, h, query)
		if len(items) != 2 {
			t.Fatalf("list %s len = %d", query, len(items))
		}
		if items[0].ID != third.ID || items[1].ID != first.ID {
			t.Fatalf("list %s order = [%s %s]", query, items[0].Title, items[1].Title)
		}
		for _, item := range items {
			if item.Status != domainissue.StatusInProgress {
				t.Fatalf("list %s returned status %q", query, item.Status)
			}
		}
	}

	if all := listIssues(t, h, ""); len(all) != 3 {
		t.Fatalf("list all len = %d", len(all))
	}
}

func TestListEmptyIsArray(t *testing.T) {
	h := setupHandler(t)

	rr := doRequest(t, h, http.MethodGet, IssuesPath, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"issues":[]}` {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCreateValidation(t *testing.T) {
	h := setupHandler(t)
	before := len(listIssues(t, h, ""))

	testCases := []struct {
		name string
		body any
	}{
		{name: "title only", body: map[string]string{"title": "Fix login bug"}},
		{name: "description only", body: map[string]string{"description": "d"}},
		{name: "empty strings", body: map[string]string{"title": "", "description": ""}},
		{name: "unknown status", body: map[string]string{"title": "t", "description": "d", "status": "BLOCKED"}},
		{name: "invalid json", body: "{"},
		{name: "wrong type", body: `{"title": 1, "description": "d"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodPost, IssuesPath, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body=%s", rr.Code, rr.Body.String())
			}
			if decodeBody[ErrorResponse](t, rr).Error == "" {
				t.Fatalf("error message missing")
			}
		})
	}

	if after := len(listIssues(t, h, "")); after != before {
		t.Fatalf("issue count changed: %d -> %d", before, after)
	}
}

func TestNotFoundOnUnknownID(t *testing.T) {
	h := setupHandler(t)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		var body any
		if method == http.MethodPatch {
			body = map[string]string{"status": "DONE"}
		}
		rr := doRequest(t, h, method, IssuesPath+"/does-not-exist", body)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404", method, rr.Code)
		}
		if msg := decodeBody[ErrorResponse](t, rr).Error; msg != "Issue not found" {
			t.Fatalf("%s error = %q", method, msg)
		}
	}
}

func TestDeleteTwice(t *testing.T) {
	h := setupHandler(t)
	created := createIssue(t, h, map[string]string{"title": "t", "description": "d"})

	rr := doRequest(t, h, http.MethodDelete, IssuesPath+"/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("delete body = %q, want empty", rr.Body.String())
	}

	if rr := doRequest(t, h, http.MethodGet, IssuesPath+"/"+created.ID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rr.Code)
	}
	if rr := doRequest(t, h, http.MethodDelete, IssuesPath+"/"+created.ID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rr.Code)
	}
}

func TestPatchValidation(t *testing.T) {
	h := setupHandler(t)
	created := createIssue(t, h, map[string]string{"title": "t", "description": "d"})

	for _, body := range []any{
		map[string]string{"status": "ARCHIVED"},
		map[string]string{"title": ""},
		"not json",
	} {
		rr := doRequest(t, h, http.MethodPatch, IssuesPath+"/"+created.ID, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("patch %v status = %d, want 400", body, rr.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := setupHandler(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{method: http.MethodPut, path: IssuesPath},
		{method: http.MethodDelete, path: IssuesPath},
		{method: http.MethodPost, path: IssuesPath + "/abc"},
		{method: http.MethodPut, path: IssuesPath + "/abc"},
	} {
		rr := doRequest(t, h, tc.method, tc.path, nil)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s status = %d, want 405", tc.method, tc.path, rr.Code)
		}
		if decodeBody[ErrorResponse](t, rr).Error == "" {
			t.Fatalf("%s %s missing error message", tc.method, tc.path)
		}
	}
}

func TestMalformedIDIsBadRequest(t *testing.T) {
	h := setupHandler(t)

	for _, path := range []string{IssuesPath + "/", IssuesPath + "/%20"} {
		rr := doRequest(t, h, http.MethodGet, path, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("GET %s status = %d, want 400", path, rr.Code)
		}
	}
}

type failingService struct {
	err error
}

func (s failingService) ListIssues(context.Context, issues.ListIssuesInput) ([]domainissue.Issue, error) {
	return nil, s.err
}

func (s failingService) GetIssue(context.Context, string) (domainissue.Issue, error) {
	return domainissue.Issue{}, s.err
}

func (s failingService) CreateIssue(context.Context, issues.CreateIssueInput) (domainissue.Issue, error) {
	return domainissue.Issue{}, s.err
}

func (s failingService) UpdateIssue(context.Context, string, issues.UpdateIssueInput) (domainissue.Issue, error) {
	return domainissue.Issue{}, s.err
}

func (s failingService) DeleteIssue(context.Context, string) error {
	return s.err
}

func TestStorageFailureIsOpaque500(t *testing.T) {
	h := NewHandler(context.Background(), failingService{err: errors.New("database is locked: /var/lib/secret.sqlite")})

	testCases := []struct {
		method string
		path   string
		body   any
		want   string
	}{
		{method: http.MethodGet, path: IssuesPath, want: "Failed to fetch issues"},
		{method: http.MethodGet, path: IssuesPath + "/x", want: "Failed to fetch issue"},
		{method: http.MethodPost, path: IssuesPath, body: map[string]string{"title": "t", "description": "d"}, want: "Failed to create issue"},
		{method: http.MethodPatch, path: IssuesPath + "/x", body: map[string]string{"title": "t"}, want: "Failed to update issue"},
		{method: http.MethodDelete, path: IssuesPath + "/x", want: "Failed to delete issue"},
	}

	for _, tc := range testCases {
		rr := doRequest(t, h, tc.method, tc.path, tc.body)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s status = %d, want 500", tc.method, tc.path, rr.Code)
		}
		if msg := decodeBody[ErrorResponse](t, rr).Error; msg != tc.want {
			t.Fatalf("%s %s error = %q, want %q", tc.method, tc.path, msg, tc.want)
		}
	}
}
