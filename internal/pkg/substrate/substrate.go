package substrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate/entity"
)

type Client struct {
	jsonRpcUrl  string
	httpClient  *http.Client
	metrics     *metrics.Store
	maxAttempts uint
}

var ErrEmptyResponse = errors.New("empty response")
var ErrUnexpectedStatus = errors.New("unexpected http status")

const RetryDelay = 75 * time.Millisecond
const MaxDelay = 5 * time.Second

func NewClient(jsonRpcUrl string, httpClient *http.Client, metricsStore *metrics.Store, maxAttempts uint) *Client {
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	return &Client{
		jsonRpcUrl:  jsonRpcUrl,
		httpClient:  httpClient,
		metrics:     metricsStore,
		maxAttempts: maxAttempts,
	}
}

func (c *Client) URL() string {
	return c.jsonRpcUrl
}

func (c *Client) SystemName(ctx context.Context) (*entity.RpcResponse[string], error) {
	return Call[string](ctx, c, entity.NewRpcRequest(entity.MethodSystemName))
}

func (c *Client) SystemHealth(ctx context.Context) (*entity.RpcResponse[entity.Health], error) {
	return Call[entity.Health](ctx, c, entity.NewRpcRequest(entity.MethodSystemHealth))
}

func (c *Client) SystemChain(ctx context.Context) (*entity.RpcResponse[string], error) {
	return Call[string](ctx, c, entity.NewRpcRequest(entity.MethodSystemChain))
}

func (c *Client) SystemVersion(ctx context.Context) (*entity.RpcResponse[string], error) {
	return Call[string](ctx, c, entity.NewRpcRequest(entity.MethodSystemVersion))
}

// ChainGetBlockHash asks for the head hash, or for the hash of blockNumber
// when one is given.
func (c *Client) ChainGetBlockHash(ctx context.Context, blockNumber ...uint64) (*entity.RpcResponse[string], error) {
	params := make([]any, 0, len(blockNumber))
	for _, n := range blockNumber {
		params = append(params, n)
	}

	return Call[string](ctx, c, entity.NewRpcRequest(entity.MethodChainGetBlockHash, params...))
}

func Call[T any](ctx context.Context, c *Client, rpcRequest entity.RpcRequest) (*entity.RpcResponse[T], error) {
	resp, err := retry.DoWithData(
		func() (*entity.RpcResponse[T], error) {
			body, err := c.post(ctx, rpcRequest)
			if err != nil {
				return nil, err
			}

			var p entity.RpcResponse[T]
			if err := json.Unmarshal(body, &p); err != nil {
				return nil, fmt.Errorf("could not unmarshal response: %w", err)
			}

			if p.Error != nil {
				return nil, fmt.Errorf("%s: %w", rpcRequest.Method, p.Error)
			}

			if p.Result == nil {
				return nil, fmt.Errorf("%s rpcResponse.Result is nil: %w", rpcRequest.Method, ErrEmptyResponse)
			}

			return &p, nil
		},
		retry.Attempts(c.maxAttempts),
		retry.Delay(RetryDelay),
		retry.MaxDelay(MaxDelay),
		retry.DelayType(retry.CombineDelay(
			retry.BackOffDelay,
			retry.RandomDelay,
		)),
		retry.RetryIf(func(err error) bool {
			var rpcErr *entity.RPCError
			return !errors.Is(err, ErrEmptyResponse) && !errors.As(err, &rpcErr)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)

	status := metrics.StatusOk
	if err != nil {
		status = metrics.StatusFail
	}
	c.metrics.RpcCalls.With(prometheus.Labels{metrics.Method: rpcRequest.Method, metrics.Status: status}).Inc()

	return resp, err
}

func (c *Client) post(ctx context.Context, rpcRequest entity.RpcRequest) ([]byte, error) {
	payload, marshalErr := json.Marshal(rpcRequest)
	if marshalErr != nil {
		return nil, marshalErr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.jsonRpcUrl, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		resp.Body.Close()
		duration := time.Since(start).Seconds()
		c.metrics.SummaryHandlers.With(prometheus.Labels{metrics.Channel: rpcRequest.Method}).Observe(duration)
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: %d %s", rpcRequest.Method, ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	return body, nil
}
