package mockserver

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/lidofinance/substrate-mockrig/internal/pkg/substrate/entity"
)

const (
	BodyTypeJSON   = `JSON`
	BodyTypeString = `STRING`

	MatchOnlyFields = `ONLY_MATCHING_FIELDS`
	MatchStrict     = `STRICT`

	SchemeHTTP  = `HTTP`
	SchemeHTTPS = `HTTPS`
)

type Expectation struct {
	ID                           string                        `json:"id,omitempty"`
	Priority                     int                           `json:"priority,omitempty"`
	HttpRequest                  *HttpRequest                  `json:"httpRequest"`
	HttpResponse                 *HttpResponse                 `json:"httpResponse,omitempty"`
	HttpOverrideForwardedRequest *HttpOverrideForwardedRequest `json:"httpOverrideForwardedRequest,omitempty"`
	Times                        *Times                        `json:"times,omitempty"`
}

type HttpRequest struct {
	Method        string              `json:"method,omitempty"`
	Path          string              `json:"path,omitempty"`
	Headers       map[string][]string `json:"headers,omitempty"`
	Body          *Body               `json:"body,omitempty"`
	Secure        *bool               `json:"secure,omitempty"`
	SocketAddress *SocketAddress      `json:"socketAddress,omitempty"`
}

type HttpResponse struct {
	StatusCode int                 `json:"statusCode,omitempty"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       *Body               `json:"body,omitempty"`
}

// Body covers the JSON and STRING body forms MockServer uses both in
// matchers and in recorded requests.
type Body struct {
	Type      string          `json:"type,omitempty"`
	JSON      json.RawMessage `json:"json,omitempty"`
	String    string          `json:"string,omitempty"`
	MatchType string          `json:"matchType,omitempty"`
}

type HttpOverrideForwardedRequest struct {
	RequestOverride *HttpRequest `json:"requestOverride,omitempty"`
}

type SocketAddress struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Scheme string `json:"scheme"`
}

type Times struct {
	RemainingTimes int  `json:"remainingTimes,omitempty"`
	AtLeast        int  `json:"atLeast,omitempty"`
	AtMost         int  `json:"atMost,omitempty"`
	Unlimited      bool `json:"unlimited,omitempty"`
}

// RPCMatcher matches a JSON-RPC POST to / carrying the given method,
// ignoring id and params.
func RPCMatcher(method string) (*HttpRequest, error) {
	matcher, err := json.Marshal(map[string]string{"method": method})
	if err != nil {
		return nil, err
	}

	return &HttpRequest{
		Method: "POST",
		Path:   "/",
		Body: &Body{
			Type:      BodyTypeJSON,
			JSON:      matcher,
			MatchType: MatchOnlyFields,
		},
	}, nil
}

// RPCResult answers method with a canned JSON-RPC 2.0 envelope carrying result.
func RPCResult(method string, result any) (Expectation, error) {
	matcher, err := RPCMatcher(method)
	if err != nil {
		return Expectation{}, err
	}

	envelope, err := json.Marshal(entity.RpcResponse[any]{
		JsonRpc: entity.Version,
		ID:      entity.DefaultID,
		Result:  &result,
	})
	if err != nil {
		return Expectation{}, fmt.Errorf("could not marshal %s result: %w", method, err)
	}

	return Expectation{
		ID:          uuid.NewString(),
		HttpRequest: matcher,
		HttpResponse: &HttpResponse{
			StatusCode: 200,
			Headers:    map[string][]string{"Content-Type": {"application/json"}},
			Body: &Body{
				Type: BodyTypeJSON,
				JSON: envelope,
			},
		},
		Times: &Times{Unlimited: true},
	}, nil
}

// RPCForward sends every JSON-RPC POST on to target, rewriting Host so that
// TLS-fronted public nodes accept it.
func RPCForward(target string) (Expectation, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Expectation{}, fmt.Errorf("could not parse forward target: %w", err)
	}
	if u.Hostname() == "" {
		return Expectation{}, fmt.Errorf("forward target %q has no host", target)
	}

	scheme := SchemeHTTP
	port := 80
	if u.Scheme == "https" {
		scheme = SchemeHTTPS
		port = 443
	}
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Expectation{}, fmt.Errorf("bad forward port %q: %w", p, err)
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	secure := scheme == SchemeHTTPS

	return Expectation{
		ID:          uuid.NewString(),
		HttpRequest: &HttpRequest{Method: "POST", Path: "/"},
		HttpOverrideForwardedRequest: &HttpOverrideForwardedRequest{
			RequestOverride: &HttpRequest{
				Path:    path,
				Headers: map[string][]string{"Host": {u.Host}},
				Secure:  &secure,
				SocketAddress: &SocketAddress{
					Host:   u.Hostname(),
					Port:   port,
					Scheme: scheme,
				},
			},
		},
		Times: &Times{Unlimited: true},
	}, nil
}
