package issues

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"issuetracker/internal/bootstrap/logging"
	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
	"issuetracker/internal/ports"
)

// Service implements the issue use cases on top of a repository.
// It keeps no state between calls.
type Service struct {
	repo ports.IssueRepository
	uow  ports.UnitOfWork
	now  func() time.Time
}

// NewService builds the service. uow may be nil, in which case multi-step
// operations such as Seed are not atomic.
func NewService(repo ports.IssueRepository, uow ports.UnitOfWork) *Service {
	return &Service{
		repo: repo,
		uow:  uow,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.uow == nil {
		return fn(ctx)
	}
	return s.uow.WithTx(ctx, fn)
}

type ListIssuesInput struct {
	// Status is case-insensitive. Empty lists every issue.
	Status string
}

type CreateIssueInput struct {
	Title       string
	Description string
	Status      string
}

type UpdateIssueInput struct {
	Title       *string
	Description *string
	Status      *string
}

func (s *Service) ListIssues(ctx context.Context, input ListIssuesInput) ([]domainissue.Issue, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	// Unknown values are passed through and match nothing.
	filter := ports.IssueFilter{Status: domainissue.NormalizeStatus(input.Status)}
	items, err := s.repo.ListIssues(ctx, filter)
	if err != nil {
		return nil, errs.Wrap(err, "list issues")
	}
	return items, nil
}

func (s *Service) GetIssue(ctx context.Context, id string) (domainissue.Issue, error) {
	if err := s.check(ctx); err != nil {
		return domainissue.Issue{}, err
	}
	id, err := normalizeID(id)
	if err != nil {
		return domainissue.Issue{}, err
	}

	item, err := s.repo.GetIssue(ctx, id)
	if err != nil {
		return domainissue.Issue{}, errs.Wrapf(err, "get issue %s", id)
	}
	return item, nil
}

func (s *Service) CreateIssue(ctx context.Context, input CreateIssueInput) (domainissue.Issue, error) {
	if err := s.check(ctx); err != nil {
		return domainissue.Issue{}, err
	}

	draft, err := domainissue.NewDraft(input.Title, input.Description, input.Status)
	if err != nil {
		return domainissue.Issue{}, err
	}

	now := s.now()
	created, err := s.repo.CreateIssue(ctx, domainissue.Issue{
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domainissue.Issue{}, errs.Wrap(err, "create issue")
	}

	logging.Info(ctx, "issue created",
		slog.String("issue_id", created.ID),
		slog.String("status", created.Status.String()),
	)
	return created, nil
}

func (s *Service) UpdateIssue(ctx context.Context, id string, input UpdateIssueInput) (domainissue.Issue, error) {
	if err := s.check(ctx); err != nil {
		return domainissue.Issue{}, err
	}
	id, err := normalizeID(id)
	if err != nil {
		return domainissue.Issue{}, err
	}

	patch, err := domainissue.NewPatch(input.Title, input.Description, input.Status)
	if err != nil {
		return domainissue.Issue{}, err
	}

	updated, err := s.repo.UpdateIssue(ctx, id, patch, s.now())
	if err != nil {
		return domainissue.Issue{}, errs.Wrapf(err, "update issue %s", id)
	}

	attrs := []slog.Attr{slog.String("issue_id", updated.ID)}
	if patch.Status != nil {
		attrs = append(attrs, slog.String("status", updated.Status.String()))
	}
	logging.Info(ctx, "issue updated", attrs...)
	return updated, nil
}

func (s *Service) DeleteIssue(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	id, err := normalizeID(id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteIssue(ctx, id); err != nil {
		return errs.Wrapf(err, "delete issue %s", id)
	}

	logging.Info(ctx, "issue deleted", slog.String("issue_id", id))
	return nil
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("issue repository is required")
	}
	return nil
}

func normalizeID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", domainissue.ErrInvalidID
	}
	return trimmed, nil
}
