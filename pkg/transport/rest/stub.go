package rest

import (
	"net/http"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
)

// isoMillis is the timestamp layout of the stateless endpoints
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type (
	createFormRequest struct {
		Title     string `validate:"required"`
		Questions []any  `validate:"required"`
	}

	submitResponseRequest struct {
		FormID  string `validate:"required"`
		Answers []any  `validate:"required"`
	}
)

// CreateFormStub handles POST /forms. Nothing is stored, the body is echoed
// back with a generated id, a creation time and an empty response list.
func (h *Handler) CreateFormStub(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := parseJSONBody(r, &body); err != nil {
		h.errorJSON(w, http.StatusInternalServerError, "Failed to create form")
		return
	}

	title, _ := body["title"].(string)
	questions, _ := body["questions"].([]any)

	if err := h.validate.Struct(createFormRequest{Title: title, Questions: questions}); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	form := make(map[string]any, len(body)+3)
	for k, v := range body {
		form[k] = v
	}
	form["id"] = entity.NewID()
	form["createdAt"] = time.Now().UTC().Format(isoMillis)
	form["responses"] = []any{}

	h.json(w, http.StatusCreated, map[string]any{"form": form})
}

// ListFormsStub handles GET /forms
func (h *Handler) ListFormsStub(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]any{"forms": []any{}})
}

// SubmitResponseStub handles POST /responses without storing anything
func (h *Handler) SubmitResponseStub(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := parseJSONBody(r, &body); err != nil {
		h.errorJSON(w, http.StatusInternalServerError, "Failed to submit response")
		return
	}

	formID, _ := body["formId"].(string)
	answers, _ := body["answers"].([]any)

	req := submitResponseRequest{FormID: formID, Answers: answers}
	if err := h.validate.Struct(req); err != nil {
		h.errorJSON(w, http.StatusBadRequest, "Invalid response data")
		return
	}

	h.json(w, http.StatusCreated, map[string]any{
		"response": map[string]any{
			"id":          entity.NewID(),
			"formId":      req.FormID,
			"answers":     req.Answers,
			"submittedAt": time.Now().UTC().Format(isoMillis),
		},
	})
}
