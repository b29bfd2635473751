package issue

import (
	"errors"

	"issuetracker/internal/errs"
)

var (
	ErrTitleDescriptionRequired = errs.Mark(errors.New("title and description are required"), errs.KindValidation)
	ErrEmptyTitle               = errs.Mark(errors.New("title must not be empty"), errs.KindValidation)
	ErrEmptyDescription         = errs.Mark(errors.New("description must not be empty"), errs.KindValidation)
	ErrInvalidStatus            = errs.Mark(errors.New("invalid status"), errs.KindValidation)
	ErrInvalidID                = errs.Mark(errors.New("invalid issue id"), errs.KindValidation)
)
