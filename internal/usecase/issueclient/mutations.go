package issueclient

import (
	"context"
	"log/slog"
	"strings"

	"issuetracker/internal/bootstrap/logging"
	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
	"issuetracker/internal/infrastructure/apiclient"
	"issuetracker/internal/interfaces/httpapi"
	"issuetracker/internal/usecase/datacache"
)

type IssueWriter interface {
	CreateIssue(ctx context.Context, input httpapi.CreateIssueRequest) (domainissue.Issue, error)
	UpdateIssue(ctx context.Context, id string, input httpapi.UpdateIssueRequest) (domainissue.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
}

// Mutations performs writes and then refetches every cached key the write
// can affect. A write returns once those refetches have settled.
// Refetch failures do not fail the write; they surface on the affected
// queries as IsError.
type Mutations struct {
	api   IssueWriter
	cache *datacache.Cache
}

func NewMutations(api IssueWriter, cache *datacache.Cache) *Mutations {
	return &Mutations{api: api, cache: cache}
}

func (m *Mutations) CreateIssue(ctx context.Context, input httpapi.CreateIssueRequest) (domainissue.Issue, error) {
	created, err := m.api.CreateIssue(ctx, input)
	if err != nil {
		return domainissue.Issue{}, err
	}
	m.revalidateLists(ctx)
	return created, nil
}

func (m *Mutations) UpdateIssue(ctx context.Context, id string, input httpapi.UpdateIssueRequest) (domainissue.Issue, error) {
	updated, err := m.api.UpdateIssue(ctx, id, input)
	if err != nil {
		return domainissue.Issue{}, err
	}
	m.revalidate(ctx, apiclient.IssueKey(id))
	m.revalidateLists(ctx)
	return updated, nil
}

func (m *Mutations) DeleteIssue(ctx context.Context, id string) error {
	if err := m.api.DeleteIssue(ctx, id); err != nil {
		return err
	}
	m.cache.Reset(apiclient.IssueKey(id))
	m.revalidateLists(ctx)
	return nil
}

// revalidateLists refetches the unfiltered collection and every filtered
// collection key seen so far.
func (m *Mutations) revalidateLists(ctx context.Context) {
	for _, key := range m.cache.Keys(httpapi.IssuesPath) {
		if key == httpapi.IssuesPath || strings.HasPrefix(key, httpapi.IssuesPath+"?") {
			m.revalidate(ctx, key)
		}
	}
}

func (m *Mutations) revalidate(ctx context.Context, key string) {
	if _, err := m.cache.Mutate(ctx, key); err != nil {
		logging.Warn(ctx, "revalidate after write failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}
