package issueclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"issuetracker/internal/infrastructure/apiclient"
	"issuetracker/internal/infrastructure/cache"
	"issuetracker/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "issuetracker/internal/infrastructure/persistence/sqlite/repository"
	"issuetracker/internal/interfaces/httpapi"
	"issuetracker/internal/usecase/datacache"
	"issuetracker/internal/usecase/issues"
)

type testEnv struct {
	ctx   context.Context
	cache *datacache.Cache
	muts  *Mutations
}

func setupEnv(t *testing.T) testEnv {
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
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Issue{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	svc := issues.NewService(sqliterepo.NewIssueRepository(db), nil)
	srv := httptest.NewServer(httpapi.NewHandler(context.Background(), svc))
	t.Cleanup(srv.Close)

	api, err := apiclient.New(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("apiclient.New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	c, err := datacache.New(ctx, cache.NewMemoryCache(), api.Fetch, datacache.WithDedupeInterval(time.Hour))
	if err != nil {
		t.Fatalf("datacache.New() error = %v", err)
	}
	t.Cleanup(c.Close)

	return testEnv{ctx: ctx, cache: c, muts: NewMutations(api, c)}
}

func strPtr(s string) *string { return &s }

func TestUseIssueWithEmptyIDIsSuspended(t *testing.T) {
	env := setupEnv(t)

	q := UseIssue(env.cache, "")
	res, err := q.Load(env.ctx)
	if err != nil || res.Issue != nil || res.IsLoading || res.IsError != nil {
		t.Fatalf("Load() = %+v, %v", res, err)
	}
	if keys := env.cache.Keys(""); len(keys) != 0 {
		t.Fatalf("suspended query created keys %v", keys)
	}
}

func TestUseIssuesEmptyCollection(t *testing.T) {
	env := setupEnv(t)

	res, err := UseIssues(env.cache, "").Load(env.ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Issues == nil || len(res.Issues) != 0 {
		t.Fatalf("Issues = %#v, want empty slice", res.Issues)
	}
}

func TestCreateRevalidatesListKeys(t *testing.T) {
	env := setupEnv(t)

	all := UseIssues(env.cache, "")
	open := UseIssues(env.cache, "OPEN")
	done := UseIssues(env.cache, "DONE")
	for _, q := range []IssuesQuery{all, open, done} {
		if _, err := q.Load(env.ctx); err != nil {
			t.Fatalf("Load(%s) error = %v", q.Key(), err)
		}
	}

	created, err := env.muts.CreateIssue(env.ctx, httpapi.CreateIssueRequest{Title: "A", Description: "B"})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	if res := all.Current(); len(res.Issues) != 1 || res.Issues[0].ID != created.ID {
		t.Fatalf("all list after create = %+v", res)
	}
	if res := open.Current(); len(res.Issues) != 1 {
		t.Fatalf("open list after create = %+v", res)
	}
	if res := done.Current(); len(res.Issues) != 0 {
		t.Fatalf("done list after create = %+v", res)
	}
}

func TestUpdateRevalidatesDetailAndLists(t *testing.T) {
	env := setupEnv(t)

	created, err := env.muts.CreateIssue(env.ctx, httpapi.CreateIssueRequest{Title: "A", Description: "B"})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	detail := UseIssue(env.cache, created.ID)
	inProgress := UseIssues(env.cache, "in_progress")
	if _, err := detail.Load(env.ctx); err != nil {
		t.Fatalf("detail Load() error = %v", err)
	}
	if res, _ := inProgress.Load(env.ctx); len(res.Issues) != 0 {
		t.Fatalf("in progress list before update = %+v", res)
	}

	if _, err := env.muts.UpdateIssue(env.ctx, created.ID, httpapi.UpdateIssueRequest{Status: strPtr("IN_PROGRESS")}); err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}

	res := detail.Current()
	if res.Issue == nil || res.Issue.Status != "IN_PROGRESS" || res.Issue.Title != "A" {
		t.Fatalf("detail after update = %+v", res)
	}
	if !res.Issue.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updatedAt did not advance: %v <= %v", res.Issue.UpdatedAt, created.UpdatedAt)
	}
	if list := inProgress.Current(); len(list.Issues) != 1 {
		t.Fatalf("in progress list after update = %+v", list)
	}
}

func TestDeleteInvalidatesDetailAndRevalidatesLists(t *testing.T) {
	env := setupEnv(t)

	created, err := env.muts.CreateIssue(env.ctx, httpapi.CreateIssueRequest{Title: "A", Description: "B"})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	all := UseIssues(env.cache, "")
	detail := UseIssue(env.cache, created.ID)
	if _, err := all.Load(env.ctx); err != nil {
		t.Fatalf("list Load() error = %v", err)
	}
	if _, err := detail.Load(env.ctx); err != nil {
		t.Fatalf("detail Load() error = %v", err)
	}

	if err := env.muts.DeleteIssue(env.ctx, created.ID); err != nil {
		t.Fatalf("DeleteIssue() error = %v", err)
	}
	if res := all.Current(); len(res.Issues) != 0 {
		t.Fatalf("list after delete = %+v", res)
	}

	res, err := detail.Load(env.ctx)
	if res.Issue != nil {
		t.Fatalf("detail still cached after delete: %+v", res.Issue)
	}
	if apiclient.StatusCode(err) != http.StatusNotFound || err.Error() != "Issue not found" {
		t.Fatalf("detail Load() error = %v, want 404 Issue not found", err)
	}
	if res.IsError == nil {
		t.Fatalf("IsError should carry the failure")
	}

	if err := env.muts.DeleteIssue(env.ctx, created.ID); apiclient.StatusCode(err) != http.StatusNotFound {
		t.Fatalf("second DeleteIssue() error = %v, want 404", err)
	}
}

func TestFailedWriteLeavesCacheUntouched(t *testing.T) {
	env := setupEnv(t)

	all := UseIssues(env.cache, "")
	if _, err := all.Load(env.ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	_, err := env.muts.CreateIssue(env.ctx, httpapi.CreateIssueRequest{Title: "only title"})
	if apiclient.StatusCode(err) != http.StatusBadRequest || err.Error() != "Title and description are required" {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if res := all.Current(); len(res.Issues) != 0 || res.IsError != nil {
		t.Fatalf("list after failed create = %+v", res)
	}
}

func TestSubscribeDeliversDecodedState(t *testing.T) {
	env := setupEnv(t)

	all := UseIssues(env.cache, "")
	updates := all.Subscribe(env.ctx)

	if _, err := env.muts.CreateIssue(env.ctx, httpapi.CreateIssueRequest{Title: "A", Description: "B"}); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if _, err := all.Mutate(env.ctx); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case res := <-updates:
			if !res.IsLoading && len(res.Issues) == 1 {
				return
			}
		case <-deadline:
			t.Fatalf("subscription never delivered the created issue")
		}
	}
}
