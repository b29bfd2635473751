package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"issuetracker/internal/bootstrap/logging"
	domainissue "issuetracker/internal/domain/issue"
	"issuetracker/internal/errs"
	"issuetracker/internal/usecase/issues"
)

const maxBodyBytes = 1 << 20

type IssueService interface {
	ListIssues(ctx context.Context, input issues.ListIssuesInput) ([]domainissue.Issue, error)
	GetIssue(ctx context.Context, id string) (domainissue.Issue, error)
	CreateIssue(ctx context.Context, input issues.CreateIssueInput) (domainissue.Issue, error)
	UpdateIssue(ctx context.Context, id string, input issues.UpdateIssueInput) (domainissue.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
}

type issueHandler struct {
	svc IssueService
}

// NewHandler builds the API router. base supplies the logger and
// attributes inherited by every request context.
func NewHandler(base context.Context, svc IssueService) http.Handler {
	h := &issueHandler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext(base))
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get(IssuesPath, h.listIssues)
	r.Post(IssuesPath, h.createIssue)
	r.Get(IssuesPath+"/{id}", h.getIssue)
	r.Patch(IssuesPath+"/{id}", h.updateIssue)
	r.Delete(IssuesPath+"/{id}", h.deleteIssue)
	// A trailing slash with no id is a malformed per-id request.
	r.HandleFunc(IssuesPath+"/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusBadRequest, "Invalid issue ID")
	})

	return r
}

func (h *issueHandler) listIssues(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListIssues(r.Context(), issues.ListIssuesInput{
		Status: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err, "Failed to fetch issues")
		return
	}
	if items == nil {
		items = []domainissue.Issue{}
	}
	writeJSON(w, http.StatusOK, IssuesResponse{Issues: items})
}

func (h *issueHandler) createIssue(w http.ResponseWriter, r *http.Request) {
	var body CreateIssueRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.svc.CreateIssue(r.Context(), issues.CreateIssueInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err, "Failed to create issue")
		return
	}
	writeJSON(w, http.StatusCreated, IssueResponse{Issue: created})
}

func (h *issueHandler) getIssue(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetIssue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, err, "Failed to fetch issue")
		return
	}
	writeJSON(w, http.StatusOK, IssueResponse{Issue: item})
}

func (h *issueHandler) updateIssue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body UpdateIssueRequest
	if err := readJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.svc.UpdateIssue(r.Context(), id, issues.UpdateIssueInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err, "Failed to update issue")
		return
	}
	writeJSON(w, http.StatusOK, IssueResponse{Issue: updated})
}

func (h *issueHandler) deleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteIssue(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(r.Context(), w, err, "Failed to delete issue")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeServiceError maps error kinds to status codes. Internal errors are
// logged and answered with fallback so storage details do not leak.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		writeError(w, http.StatusBadRequest, validationMessage(err))
	case errs.KindNotFound:
		writeError(w, http.StatusNotFound, "Issue not found")
	default:
		logging.Error(ctx, fallback, slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, domainissue.ErrTitleDescriptionRequired):
		return "Title and description are required"
	case errors.Is(err, domainissue.ErrInvalidID):
		return "Invalid issue ID"
	default:
		return err.Error()
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
