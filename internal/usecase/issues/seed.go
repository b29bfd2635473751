package issues

import (
	"context"
	"log/slog"
	"time"

	"issuetracker/internal/bootstrap/logging"
	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
)

// DefaultSeed is the sample data loaded when no seed file is given.
var DefaultSeed = []CreateIssueInput{
	{
		Title:       "Fix login bug",
		Description: "Users are unable to log in with their credentials",
		Status:      string(domainissue.StatusOpen),
	},
	{
		Title:       "Add dark mode",
		Description: "Implement dark mode theme for the application",
		Status:      string(domainissue.StatusInProgress),
	},
	{
		Title:       "Update documentation",
		Description: "Update README with latest setup instructions",
		Status:      string(domainissue.StatusDone),
	},
}

type SeedInput struct {
	Issues []CreateIssueInput
	// Reset removes every existing issue first.
	Reset bool
}

type SeedResult struct {
	Removed int64
	Created []domainissue.Issue
}

// Seed validates every entry before writing anything, then resets and
// inserts in one transaction. Entries get distinct creation times so
// listing order is stable.
func (s *Service) Seed(ctx context.Context, input SeedInput) (SeedResult, error) {
	if err := s.check(ctx); err != nil {
		return SeedResult{}, err
	}

	drafts := make([]domainissue.Draft, 0, len(input.Issues))
	for i, item := range input.Issues {
		draft, err := domainissue.NewDraft(item.Title, item.Description, item.Status)
		if err != nil {
			return SeedResult{}, errs.Wrapf(err, "seed entry %d", i)
		}
		drafts = append(drafts, draft)
	}

	var result SeedResult
	err := s.withTx(ctx, func(ctx context.Context) error {
		result = SeedResult{}
		if input.Reset {
			removed, err := s.repo.DeleteAllIssues(ctx)
			if err != nil {
				return errs.Wrap(err, "reset issues")
			}
			result.Removed = removed
		}

		base := s.now()
		for i, draft := range drafts {
			at := base.Add(time.Duration(i) * time.Millisecond)
			created, err := s.repo.CreateIssue(ctx, domainissue.Issue{
				Title:       draft.Title,
				Description: draft.Description,
				Status:      draft.Status,
				CreatedAt:   at,
				UpdatedAt:   at,
			})
			if err != nil {
				return errs.Wrapf(err, "seed issue %q", draft.Title)
			}
			result.Created = append(result.Created, created)
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	logging.Info(ctx, "seeding completed",
		slog.Int("created", len(result.Created)),
		slog.Int64("removed", result.Removed),
	)
	return result, nil
}
