package expectations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

type loader interface {
	LoadExpectations(ctx context.Context, expectations []byte) (int, error)
	Reset(ctx context.Context) error
}

type handler struct {
	log        *slog.Logger
	mockServer loader
}

func New(log *slog.Logger, mockServer loader) *handler {
	return &handler{
		log:        log,
		mockServer: mockServer,
	}
}

// Handler forwards the request body to MockServer as expectation JSON.
func (h *handler) Handler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, loadErr := h.mockServer.LoadExpectations(r.Context(), payload)
	if loadErr != nil {
		h.log.Error(fmt.Sprintf(`could not load expectations: %v`, loadErr))
		if status == 0 {
			status = http.StatusBadGateway
		}
		http.Error(w, loadErr.Error(), status)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write([]byte("OK"))
}

func (h *handler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.mockServer.Reset(r.Context()); err != nil {
		h.log.Error(fmt.Sprintf(`could not reset MockServer: %v`, err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	_, _ = w.Write([]byte("OK"))
}
