package health

import (
	"context"
	"net/http"
)

type statusChecker interface {
	Status(ctx context.Context) ([]int, error)
}

type handler struct {
	mockServer statusChecker
}

func New(mockServer statusChecker) *handler {
	return &handler{
		mockServer: mockServer,
	}
}

func (h *handler) Handler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.mockServer.Status(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	_, _ = w.Write([]byte("OK"))
}
