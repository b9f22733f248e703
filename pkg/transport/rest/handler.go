// Package rest exposes the form service over HTTP
package rest

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/export"
	"github.com/Koyo-os/form-builder/internal/stats"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type FormService interface {
	NewForm() *entity.Form
	SaveForm(ctx context.Context, form *entity.Form) (*entity.Form, error)
	GetForm(ctx context.Context, id string) (*entity.Form, error)
	ListForms(ctx context.Context) ([]entity.Form, error)
	DeleteForm(ctx context.Context, id string) error
	SubmitResponse(ctx context.Context, formID string, answers map[string]string) (*entity.Response, error)
	GetResponse(ctx context.Context, formID, responseID string) (*entity.Response, error)
	Stats(ctx context.Context, formID string) (stats.Summary, error)
	ExportCSV(ctx context.Context, formID string) (string, string, error)
}

type Handler struct {
	service  FormService
	validate *validator.Validate
	logger   *logger.Logger
}

func NewHandler(service FormService, logger *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type (
	formList struct {
		Forms []entity.Form `json:"forms"`
	}

	submitBody struct {
		Answers map[string]string `json:"answers"`
	}
)

// ListForms handles GET /admin/forms
func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.service.ListForms(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to fetch forms")
		return
	}

	h.json(w, http.StatusOK, formList{Forms: forms})
}

// NewForm handles GET /admin/forms/new, the draft is not stored
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, h.service.NewForm())
}

// GetForm handles GET /admin/forms/{id}
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Failed to fetch form")
		return
	}

	h.json(w, http.StatusOK, form)
}

// SaveForm handles PUT /admin/forms/{id}, the path id wins over the body
func (h *Handler) SaveForm(w http.ResponseWriter, r *http.Request) {
	form := new(entity.Form)
	if err := parseJSONBody(r, form); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	form.ID = r.PathValue("id")

	saved, err := h.service.SaveForm(r.Context(), form)
	if err != nil {
		h.fail(w, err, "Failed to save form")
		return
	}

	h.json(w, http.StatusOK, saved)
}

// DeleteForm handles DELETE /admin/forms/{id}
func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteForm(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err, "Failed to delete form")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /admin/forms/{id}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Failed to compute statistics")
		return
	}

	h.json(w, http.StatusOK, summary)
}

// GetResponse handles GET /admin/forms/{id}/responses/{responseId}
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.GetResponse(r.Context(), r.PathValue("id"), r.PathValue("responseId"))
	if err != nil {
		h.fail(w, err, "Failed to fetch response")
		return
	}

	h.json(w, http.StatusOK, response)
}

// Export handles GET /admin/forms/{id}/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name, content, err := h.service.ExportCSV(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Failed to export responses")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// PublicForm handles GET /public/forms/{id}, responses are left out
func (h *Handler) PublicForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "Failed to fetch form")
		return
	}

	h.json(w, http.StatusOK, form.ToOutput())
}

// Submit handles POST /public/forms/{id}/responses
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := parseJSONBody(r, &body); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	response, err := h.service.SubmitResponse(r.Context(), r.PathValue("id"), body.Answers)
	if err != nil {
		h.fail(w, err, "Failed to submit response")
		return
	}

	h.json(w, http.StatusCreated, response)
}

// fail maps domain errors to a status, anything unknown is logged and hidden behind message
func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	var verr *entity.ValidationError

	switch {
	case errors.As(err, &verr):
		h.json(w, http.StatusBadRequest, errorBody{Error: verr.Message, Fields: verr.Fields})
	case errors.Is(err, entity.ErrFormNotFound):
		h.errorJSON(w, http.StatusNotFound, "Form not found")
	case errors.Is(err, entity.ErrResponseNotFound):
		h.errorJSON(w, http.StatusNotFound, "Response not found")
	case errors.Is(err, export.ErrNoResponses):
		h.errorJSON(w, http.StatusConflict, "No responses to export")
	default:
		h.logger.Error(message, zap.Error(err))
		h.errorJSON(w, http.StatusInternalServerError, message)
	}
}
