package httpapi

import (
	domainissue "issuetracker/internal/domain/issue"
)

// IssuesPath is the collection path. A single issue lives at IssuesPath + "/" + id.
const IssuesPath = "/api/issues"

type IssueResponse struct {
	Issue domainissue.Issue `json:"issue"`
}

type IssuesResponse struct {
	Issues []domainissue.Issue `json:"issues"`
}

type CreateIssueRequest struct {
	Title       string `json:"title" jsonschema:"required,minLength=1"`
	Description string `json:"description" jsonschema:"required,minLength=1"`
	Status      string `json:"status,omitempty" jsonschema:"enum=OPEN,enum=IN_PROGRESS,enum=DONE,default=OPEN"`
}

// UpdateIssueRequest is a partial update: absent fields are left untouched.
type UpdateIssueRequest struct {
	Title       *string `json:"title,omitempty" jsonschema:"minLength=1"`
	Description *string `json:"description,omitempty" jsonschema:"minLength=1"`
	Status      *string `json:"status,omitempty" jsonschema:"enum=OPEN,enum=IN_PROGRESS,enum=DONE"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
