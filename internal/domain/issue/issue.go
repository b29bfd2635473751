package issue

import (
	"strings"
	"time"
)

type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Draft is a validated create request.
type Draft struct {
	Title       string
	Description string
	Status      Status
}

// NewDraft validates create input. A blank status defaults to OPEN.
func NewDraft(title string, description string, status string) (Draft, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return Draft{}, ErrTitleDescriptionRequired
	}

	parsed, err := ParseStatus(status, StatusOpen)
	if err != nil {
		return Draft{}, err
	}

	return Draft{
		Title:       title,
		Description: description,
		Status:      parsed,
	}, nil
}

// Patch carries the subset of fields supplied by a partial update.
// A nil field is left untouched.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// NewPatch validates partial update input. Supplied text fields must stay
// non-empty so a stored issue never loses its title or description.
func NewPatch(title *string, description *string, status *string) (Patch, error) {
	var patch Patch

	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return Patch{}, ErrEmptyTitle
		}
		value := *title
		patch.Title = &value
	}

	if description != nil {
		if strings.TrimSpace(*description) == "" {
			return Patch{}, ErrEmptyDescription
		}
		value := *description
		patch.Description = &value
	}

	if status != nil {
		parsed, err := ParseStatus(*status, "")
		if err != nil {
			return Patch{}, err
		}
		if parsed == "" {
			return Patch{}, ErrInvalidStatus
		}
		patch.Status = &parsed
	}

	return patch, nil
}

// Apply returns a copy of i with the patch fields overwritten and
// UpdatedAt set to at.
func (p Patch) Apply(i Issue, at time.Time) Issue {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	i.UpdatedAt = at
	return i
}
