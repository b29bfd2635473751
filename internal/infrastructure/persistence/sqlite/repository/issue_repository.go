package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
	"issuetracker/internal/infrastructure/persistence/sqlite/model"
	"issuetracker/internal/ports"
)

type IssueRepository struct {
	db    *gorm.DB
	newID func() string
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{
		db:    db,
		newID: uuid.NewString,
	}
}

func (r *IssueRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if r.db == nil {
		return nil, errors.New("issue repository database is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *IssueRepository) ListIssues(ctx context.Context, filter ports.IssueFilter) ([]domainissue.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Issue{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var rows []model.Issue
	if err := query.Order("created_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query issues")
	}

	items := make([]domainissue.Issue, 0, len(rows))
	for _, row := range rows {
		item, err := mapIssue(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *IssueRepository) GetIssue(ctx context.Context, id string) (domainissue.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return domainissue.Issue{}, err
	}

	row, err := takeIssue(db, id)
	if err != nil {
		return domainissue.Issue{}, err
	}
	return mapIssue(row)
}

func (r *IssueRepository) CreateIssue(ctx context.Context, issue domainissue.Issue) (domainissue.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return domainissue.Issue{}, err
	}

	if issue.ID == "" {
		issue.ID = r.newID()
	}
	if issue.Status == "" {
		issue.Status = domainissue.StatusOpen
	}
	if !issue.Status.Valid() {
		return domainissue.Issue{}, fmt.Errorf("%w: %q", domainissue.ErrInvalidStatus, issue.Status)
	}
	if issue.UpdatedAt.Before(issue.CreatedAt) {
		issue.UpdatedAt = issue.CreatedAt
	}

	row := model.Issue{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Status:      string(issue.Status),
		CreatedAt:   formatTime(issue.CreatedAt),
		UpdatedAt:   formatTime(issue.UpdatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return domainissue.Issue{}, errs.Wrap(errs.WithStack(err), "insert issue")
	}
	return mapIssue(row)
}

func (r *IssueRepository) UpdateIssue(ctx context.Context, id string, patch domainissue.Patch, at time.Time) (domainissue.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return domainissue.Issue{}, err
	}

	var updated model.Issue
	if err := db.Transaction(func(tx *gorm.DB) error {
		row, err := takeIssue(tx, id)
		if err != nil {
			return err
		}

		current, err := mapIssue(row)
		if err != nil {
			return err
		}

		// UpdatedAt must move forward even if the clock did not.
		updatedAt := at.UTC()
		if !updatedAt.After(current.UpdatedAt) {
			updatedAt = current.UpdatedAt.Add(time.Microsecond)
		}

		values := map[string]any{
			"updated_at": formatTime(updatedAt),
		}
		if patch.Title != nil {
			values["title"] = *patch.Title
		}
		if patch.Description != nil {
			values["description"] = *patch.Description
		}
		if patch.Status != nil {
			values["status"] = string(*patch.Status)
		}

		result := tx.Model(&model.Issue{}).Where("id = ?", id).Updates(values)
		if result.Error != nil {
			return errs.Wrap(errs.WithStack(result.Error), "update issue")
		}
		if result.RowsAffected == 0 {
			return ports.ErrIssueNotFound
		}

		updated, err = takeIssue(tx, id)
		return err
	}); err != nil {
		return domainissue.Issue{}, err
	}

	return mapIssue(updated)
}

func (r *IssueRepository) DeleteIssue(ctx context.Context, id string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&model.Issue{})
	if result.Error != nil {
		return errs.Wrap(errs.WithStack(result.Error), "delete issue")
	}
	if result.RowsAffected == 0 {
		return ports.ErrIssueNotFound
	}
	return nil
}

func (r *IssueRepository) DeleteAllIssues(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Issue{})
	if result.Error != nil {
		return 0, errs.Wrap(errs.WithStack(result.Error), "delete all issues")
	}
	return result.RowsAffected, nil
}

func takeIssue(db *gorm.DB, id string) (model.Issue, error) {
	var row model.Issue
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Issue{}, ports.ErrIssueNotFound
		}
		return model.Issue{}, errs.Wrap(errs.WithStack(err), "query issue")
	}
	return row, nil
}

func mapIssue(row model.Issue) (domainissue.Issue, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return domainissue.Issue{}, errs.Wrapf(err, "parse created_at of issue %s", row.ID)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return domainissue.Issue{}, errs.Wrapf(err, "parse updated_at of issue %s", row.ID)
	}

	return domainissue.Issue{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Status:      domainissue.Status(row.Status),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(model.TimeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(model.TimeLayout, value)
}
