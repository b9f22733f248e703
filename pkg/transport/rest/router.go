package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
)

func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	// stateless endpoints
	mux.HandleFunc("POST /forms", h.CreateFormStub)
	mux.HandleFunc("GET /forms", h.ListFormsStub)
	mux.HandleFunc("POST /responses", h.SubmitResponseStub)

	// dashboard
	mux.HandleFunc("GET /admin/forms", h.ListForms)
	mux.HandleFunc("GET /admin/forms/new", h.NewForm)
	mux.HandleFunc("GET /admin/forms/{id}", h.GetForm)
	mux.HandleFunc("PUT /admin/forms/{id}", h.SaveForm)
	mux.HandleFunc("DELETE /admin/forms/{id}", h.DeleteForm)
	mux.HandleFunc("GET /admin/forms/{id}/stats", h.Stats)
	mux.HandleFunc("GET /admin/forms/{id}/responses/{responseId}", h.GetResponse)
	mux.HandleFunc("GET /admin/forms/{id}/export", h.Export)

	// respondents
	mux.HandleFunc("GET /public/forms/{id}", h.PublicForm)
	mux.HandleFunc("POST /public/forms/{id}/responses", h.Submit)

	return CORS(WithLogging(h.logger, mux))
}

// Serve runs the API server until ctx is done, then drains open requests
func Serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("shutting down http server")

	return srv.Shutdown(shutdownCtx)
}
