package ports

import (
	"context"
	"errors"
	"time"

	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
)

var ErrIssueNotFound = errs.Mark(errors.New("issue not found"), errs.KindNotFound)

type IssueFilter struct {
	// Status restricts the listing to one state. Empty means all.
	Status domainissue.Status
}

type IssueRepository interface {
	// ListIssues returns issues ordered by CreatedAt, newest first.
	ListIssues(ctx context.Context, filter IssueFilter) ([]domainissue.Issue, error)
	GetIssue(ctx context.Context, id string) (domainissue.Issue, error)
	CreateIssue(ctx context.Context, issue domainissue.Issue) (domainissue.Issue, error)
	// UpdateIssue overwrites only the patch fields and always refreshes
	// UpdatedAt to a value strictly after the stored one.
	UpdateIssue(ctx context.Context, id string, patch domainissue.Patch, at time.Time) (domainissue.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
	// DeleteAllIssues is used by seeding only.
	DeleteAllIssues(ctx context.Context) (int64, error)
}
