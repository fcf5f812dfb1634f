package mockserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
)

// Client talks to the MockServer REST control plane under /mockserver.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Store
}

var ErrRejected = errors.New("mockserver rejected request")
var ErrVerification = errors.New("mockserver verification failed")

const AdminLabel = `mockserver`

func New(baseURL string, httpClient *http.Client, metricsStore *metrics.Store) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		metrics:    metricsStore,
	}
}

// LoadExpectations PUTs raw expectation JSON (a single object or an array),
// the same document MockServer accepts as its initialization file.
func (c *Client) LoadExpectations(ctx context.Context, expectations []byte) (int, error) {
	status, body, err := c.put(ctx, "/mockserver/expectation", expectations)

	result := metrics.StatusOk
	defer func() {
		c.metrics.ExpectationsLoaded.With(prometheus.Labels{metrics.Status: result}).Inc()
	}()

	if err != nil {
		result = metrics.StatusFail
		return 0, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		result = metrics.StatusFail
		return status, fmt.Errorf("load expectations: %w: %d %s", ErrRejected, status, body)
	}

	return status, nil
}

func (c *Client) LoadExpectationsFile(ctx context.Context, path string) (int, error) {
	expectations, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("could not read expectations file: %w", err)
	}

	return c.LoadExpectations(ctx, expectations)
}

func (c *Client) Upsert(ctx context.Context, expectations ...Expectation) error {
	payload, err := json.Marshal(expectations)
	if err != nil {
		return fmt.Errorf("could not marshal expectations: %w", err)
	}

	_, err = c.LoadExpectations(ctx, payload)
	return err
}

type statusResponse struct {
	Ports []int `json:"ports"`
}

// Status returns the ports MockServer is bound to. It doubles as a liveness
// probe.
func (c *Client) Status(ctx context.Context) ([]int, error) {
	status, body, err := c.put(ctx, "/mockserver/status", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("status: %w: %d %s", ErrRejected, status, body)
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("could not unmarshal status: %w", err)
	}

	return resp.Ports, nil
}

func (c *Client) Reset(ctx context.Context) error {
	status, body, err := c.put(ctx, "/mockserver/reset", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("reset: %w: %d %s", ErrRejected, status, body)
	}

	return nil
}

// Clear removes expectations and recorded requests matching req.
func (c *Client) Clear(ctx context.Context, req *HttpRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("could not marshal clear matcher: %w", err)
	}

	status, body, err := c.put(ctx, "/mockserver/clear", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("clear: %w: %d %s", ErrRejected, status, body)
	}

	return nil
}

// RetrieveRequests returns the requests MockServer recorded, filtered by
// matcher when it is not nil.
func (c *Client) RetrieveRequests(ctx context.Context, matcher *HttpRequest) ([]HttpRequest, error) {
	var payload []byte
	if matcher != nil {
		var err error
		if payload, err = json.Marshal(matcher); err != nil {
			return nil, fmt.Errorf("could not marshal retrieve matcher: %w", err)
		}
	}

	status, body, err := c.put(ctx, "/mockserver/retrieve?type=REQUESTS&format=JSON", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("retrieve: %w: %d %s", ErrRejected, status, body)
	}

	var recorded []HttpRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return recorded, nil
	}
	if err := json.Unmarshal(body, &recorded); err != nil {
		return nil, fmt.Errorf("could not unmarshal recorded requests: %w", err)
	}

	return recorded, nil
}

type verification struct {
	HttpRequest *HttpRequest `json:"httpRequest"`
	Times       *Times       `json:"times,omitempty"`
}

// Verify asks MockServer whether req was received within the bounds of times.
func (c *Client) Verify(ctx context.Context, req *HttpRequest, times *Times) error {
	payload, err := json.Marshal(verification{HttpRequest: req, Times: times})
	if err != nil {
		return fmt.Errorf("could not marshal verification: %w", err)
	}

	status, body, err := c.put(ctx, "/mockserver/verify", payload)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusAccepted:
		return nil
	case http.StatusNotAcceptable:
		return fmt.Errorf("%w: %s", ErrVerification, body)
	default:
		return fmt.Errorf("verify: %w: %d %s", ErrRejected, status, body)
	}
}

func (c *Client) put(ctx context.Context, path string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("could not create mockserver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("could not send mockserver request: %w", err)
	}
	defer func() {
		resp.Body.Close()
		c.metrics.SummaryHandlers.
			With(prometheus.Labels{metrics.Channel: AdminLabel}).
			Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("could not read mockserver response: %w", err)
	}

	return resp.StatusCode, body, nil
}
