package rest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/export"
	"github.com/Koyo-os/form-builder/internal/repository"
	"github.com/Koyo-os/form-builder/internal/service"
	"github.com/Koyo-os/form-builder/internal/stats"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/Koyo-os/form-builder/pkg/transport/casher"
	"github.com/Koyo-os/form-builder/pkg/transport/publisher"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupRouter(t *testing.T) (http.Handler, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	svc := service.Init(
		casher.Nop{},
		repository.NewMemory(),
		publisher.Nop{Logger: log},
		time.Second,
		log,
		export.TimeFormatter{Location: time.UTC, Layout: export.TimestampLayout},
	)

	return NewRouter(NewHandler(svc, log)), logs
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}

const colorForm = `{
	"title": "T",
	"questions": [
		{"id": "q1", "text": "Color?", "type": "multiple-choice", "options": ["Red", "Blue"]}
	]
}`

func TestCreateFormStub(t *testing.T) {
	h, _ := setupRouter(t)

	w := do(t, h, http.MethodPost, "/forms", `{"title":"Feedback","questions":[],"extra":1}`)

	require.Equal(t, http.StatusCreated, w.Code)

	body := decode[map[string]map[string]any](t, w)
	form := body["form"]
	assert.Equal(t, "Feedback", form["title"])
	assert.NotEmpty(t, form["id"])
	assert.NotEmpty(t, form["createdAt"])
	assert.Equal(t, []any{}, form["responses"])
	assert.EqualValues(t, 1, form["extra"])
}

func TestCreateFormStub_Invalid(t *testing.T) {
	h, _ := setupRouter(t)

	cases := map[string]string{
		"missing title":       `{"questions":[]}`,
		"empty title":         `{"title":"","questions":[]}`,
		"questions not array": `{"title":"T","questions":"q"}`,
		"missing questions":   `{"title":"T"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/forms", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Invalid form data"}`, w.Body.String())
		})
	}
}

func TestCreateFormStub_Malformed(t *testing.T) {
	h, _ := setupRouter(t)

	w := do(t, h, http.MethodPost, "/forms", `{"title":`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to create form"}`, w.Body.String())
}

func TestListFormsStub(t *testing.T) {
	h, _ := setupRouter(t)

	w := do(t, h, http.MethodGet, "/forms", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"forms":[]}`, w.Body.String())
}

func TestSubmitResponseStub(t *testing.T) {
	h, _ := setupRouter(t)

	w := do(t, h, http.MethodPost, "/responses", `{"formId":"f1","answers":[{"questionId":"q1","value":"Red"}]}`)

	require.Equal(t, http.StatusCreated, w.Code)

	response := decode[map[string]map[string]any](t, w)["response"]
	assert.Equal(t, "f1", response["formId"])
	assert.NotEmpty(t, response["id"])
	assert.NotEmpty(t, response["submittedAt"])
	assert.Len(t, response["answers"], 1)

	w = do(t, h, http.MethodPost, "/responses", `{"formId":"f1","answers":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid response data"}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/responses", `nope`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to submit response"}`, w.Body.String())
}

func TestAdmin_FormLifecycle(t *testing.T) {
	h, logs := setupRouter(t)

	w := do(t, h, http.MethodGet, "/admin/forms/new", "")
	require.Equal(t, http.StatusOK, w.Code)
	draft := decode[entity.Form](t, w)
	assert.NotEmpty(t, draft.ID)
	assert.Len(t, draft.Questions, 1)

	w = do(t, h, http.MethodPut, "/admin/forms/f1", colorForm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode[entity.Form](t, w)
	assert.Equal(t, "f1", saved.ID)

	w = do(t, h, http.MethodGet, "/admin/forms/f1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "T", decode[entity.Form](t, w).Title)

	w = do(t, h, http.MethodGet, "/admin/forms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[formList](t, w).Forms, 1)

	w = do(t, h, http.MethodDelete, "/admin/forms/f1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/admin/forms/f1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Form not found"}`, w.Body.String())

	w = do(t, h, http.MethodDelete, "/admin/forms/f1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.NotZero(t, logs.FilterMessage("request completed").Len())
}

func TestAdmin_SaveForm_Validation(t *testing.T) {
	h, _ := setupRouter(t)

	w := do(t, h, http.MethodPut, "/admin/forms/f1", `{"title":"  ","questions":[{"text":"Q","type":"text"}]}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "invalid form", body["error"])
	assert.NotEmpty(t, body["fields"])

	w = do(t, h, http.MethodPut, "/admin/forms/f1", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublic_SubmitAndReport(t *testing.T) {
	h, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/admin/forms/f1", colorForm).Code)

	w := do(t, h, http.MethodGet, "/public/forms/f1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "responses")
	assert.Equal(t, "T", decode[entity.OutputForm](t, w).Title)

	var ids []string
	for _, color := range []string{"Red", "Red", "Blue"} {
		w = do(t, h, http.MethodPost, "/public/forms/f1/responses", `{"answers":{"q1":"`+color+`"}}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[entity.Response](t, w).ID)
	}

	w = do(t, h, http.MethodGet, "/admin/forms/f1/responses/"+ids[2], "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[entity.Response](t, w)
	assert.Equal(t, []entity.Answer{{QuestionID: "q1", Value: "Blue"}}, got.Answers)

	w = do(t, h, http.MethodGet, "/admin/forms/f1/responses/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/admin/forms/f1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[stats.Summary](t, w)
	assert.Equal(t, 3, summary.TotalResponses)
	require.Len(t, summary.Questions, 1)
	assert.Equal(t, []stats.OptionTally{
		{Option: "Red", Count: 2, Percentage: 66.7},
		{Option: "Blue", Count: 1, Percentage: 33.3},
	}, summary.Questions[0].Tallies)

	w = do(t, h, http.MethodGet, "/admin/forms/f1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=T-responses.csv`, w.Header().Get("Content-Disposition"))

	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"Response ID","Submitted At","Color?"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"`+ids[0]+`",`))
	assert.True(t, strings.HasSuffix(lines[3], `,"Blue"`))
}

func TestPublic_SubmitMissingAnswer(t *testing.T) {
	h, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/admin/forms/f1", colorForm).Code)

	w := do(t, h, http.MethodPost, "/public/forms/f1/responses", `{"answers":{}}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "please answer all questions before submitting", body["error"])

	w = do(t, h, http.MethodPost, "/public/forms/missing/responses", `{"answers":{"q1":"Red"}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport_NoResponses(t *testing.T) {
	h, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/admin/forms/f1", colorForm).Code)

	w := do(t, h, http.MethodGet, "/admin/forms/f1/export", "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"No responses to export"}`, w.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	h, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/admin/forms", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
