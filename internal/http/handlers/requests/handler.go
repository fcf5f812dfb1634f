package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lidofinance/substrate-mockrig/internal/pkg/mockserver"
)

type retriever interface {
	RetrieveRequests(ctx context.Context, matcher *mockserver.HttpRequest) ([]mockserver.HttpRequest, error)
}

type handler struct {
	log        *slog.Logger
	mockServer retriever
}

func New(log *slog.Logger, mockServer retriever) *handler {
	return &handler{
		log:        log,
		mockServer: mockServer,
	}
}

// Handler lists the requests MockServer recorded. ?method= narrows the list
// to one JSON-RPC method.
func (h *handler) Handler(w http.ResponseWriter, r *http.Request) {
	var matcher *mockserver.HttpRequest
	if method := r.URL.Query().Get("method"); method != "" {
		var err error
		if matcher, err = mockserver.RPCMatcher(method); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	recorded, err := h.mockServer.RetrieveRequests(r.Context(), matcher)
	if err != nil {
		h.log.Error(fmt.Sprintf(`could not retrieve recorded requests: %v`, err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if recorded == nil {
		recorded = []mockserver.HttpRequest{}
	}

	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(recorded); encodeErr != nil {
		h.log.Error(fmt.Sprintf(`could not encode recorded requests: %v`, encodeErr))
	}
}
