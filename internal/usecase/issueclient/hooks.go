// Package issueclient exposes issue reads backed by the data cache and
// writes that revalidate the affected keys before returning.
package issueclient

import (
	"context"

	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/infrastructure/apiclient"
	"issuetracker/internal/usecase/datacache"
)

type IssueResult struct {
	Issue     *domainissue.Issue
	IsLoading bool
	IsError   error
}

type IssuesResult struct {
	Issues    []domainissue.Issue
	IsLoading bool
	IsError   error
}

// IssueQuery reads one issue through the cache. The zero id suspends it.
type IssueQuery struct {
	cache *datacache.Cache
	key   string
}

func UseIssue(cache *datacache.Cache, id string) IssueQuery {
	q := IssueQuery{cache: cache}
	if id != "" {
		q.key = apiclient.IssueKey(id)
	}
	return q
}

func (q IssueQuery) Key() string {
	return q.key
}

// Current returns the cached state, starting a revalidation when due.
func (q IssueQuery) Current() IssueResult {
	if q.key == "" {
		return IssueResult{}
	}
	return issueResult(q.cache.Get(q.key))
}

// Load waits for any running fetch and returns the settled state.
func (q IssueQuery) Load(ctx context.Context) (IssueResult, error) {
	if q.key == "" {
		return IssueResult{}, nil
	}
	st, err := q.cache.Load(ctx, q.key)
	res := issueResult(st)
	if err == nil {
		err = res.IsError
	}
	return res, err
}

func (q IssueQuery) Mutate(ctx context.Context) (IssueResult, error) {
	if q.key == "" {
		return IssueResult{}, nil
	}
	st, err := q.cache.Mutate(ctx, q.key)
	res := issueResult(st)
	if err == nil {
		err = res.IsError
	}
	return res, err
}

// Subscribe delivers the decoded state after every change of the key.
func (q IssueQuery) Subscribe(ctx context.Context) <-chan IssueResult {
	out := make(chan IssueResult, 1)
	if q.key == "" {
		close(out)
		return out
	}
	states, cancel := q.cache.Subscribe(q.key)
	go relay(ctx, states, cancel, out, issueResult)
	return out
}

func issueResult(st datacache.State) IssueResult {
	res := IssueResult{IsLoading: st.IsLoading, IsError: st.Err}
	if !st.HasData() {
		return res
	}
	item, err := apiclient.DecodeIssue(st.Data)
	if err != nil {
		res.IsError = err
		return res
	}
	res.Issue = &item
	return res
}

// IssuesQuery reads the issue collection, optionally filtered by status.
type IssuesQuery struct {
	cache *datacache.Cache
	key   string
}

func UseIssues(cache *datacache.Cache, status string) IssuesQuery {
	return IssuesQuery{cache: cache, key: apiclient.IssuesKey(status)}
}

func (q IssuesQuery) Key() string {
	return q.key
}

func (q IssuesQuery) Current() IssuesResult {
	return issuesResult(q.cache.Get(q.key))
}

func (q IssuesQuery) Load(ctx context.Context) (IssuesResult, error) {
	st, err := q.cache.Load(ctx, q.key)
	res := issuesResult(st)
	if err == nil {
		err = res.IsError
	}
	return res, err
}

func (q IssuesQuery) Mutate(ctx context.Context) (IssuesResult, error) {
	st, err := q.cache.Mutate(ctx, q.key)
	res := issuesResult(st)
	if err == nil {
		err = res.IsError
	}
	return res, err
}

func (q IssuesQuery) Subscribe(ctx context.Context) <-chan IssuesResult {
	out := make(chan IssuesResult, 1)
	states, cancel := q.cache.Subscribe(q.key)
	go relay(ctx, states, cancel, out, issuesResult)
	return out
}

func issuesResult(st datacache.State) IssuesResult {
	res := IssuesResult{Issues: []domainissue.Issue{}, IsLoading: st.IsLoading, IsError: st.Err}
	if !st.HasData() {
		return res
	}
	items, err := apiclient.DecodeIssues(st.Data)
	if err != nil {
		res.IsError = err
		return res
	}
	if items != nil {
		res.Issues = items
	}
	return res
}

func relay[T any](ctx context.Context, states <-chan datacache.State, cancel func(), out chan T, decode func(datacache.State) T) {
	defer close(out)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			v := decode(st)
			select {
			case out <- v:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
