package mockserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/h2non/gock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidofinance/substrate-mockrig/internal/connectors/metrics"
)

const baseURL = "http://mockserver.test:1080"

func newTestClient(t *testing.T) (*Client, *metrics.Store) {
	t.Helper()

	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)
	t.Cleanup(func() {
		gock.RestoreClient(httpClient)
		gock.Off()
	})

	store := metrics.New(prometheus.NewRegistry(), "test", "mockrig", "local")
	return New(baseURL+"/", httpClient, store), store
}

func jsonDecode(req *http.Request, v any) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	return json.Unmarshal(body, v)
}

func TestClient_LoadExpectations(t *testing.T) {
	tests := []struct {
		name       string
		replyCode  int
		wantErr    bool
		wantStatus string
	}{
		{name: "created", replyCode: http.StatusCreated, wantStatus: metrics.StatusOk},
		{name: "invalid", replyCode: http.StatusBadRequest, wantErr: true, wantStatus: metrics.StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newTestClient(t)
			raw := []byte(`[{"httpRequest":{"path":"/"},"httpResponse":{"statusCode":200}}]`)

			gock.New(baseURL).
				Put("/mockserver/expectation").
				MatchType("json").
				BodyString(string(raw)).
				Reply(tt.replyCode).
				BodyString(`incorrect expectation json format`)

			status, err := c.LoadExpectations(context.Background(), raw)
			assert.Equal(t, tt.replyCode, status)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRejected)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, gock.IsDone())
			assert.Equal(t, 1.0, testutil.ToFloat64(store.ExpectationsLoaded.With(prometheus.Labels{metrics.Status: tt.wantStatus})))
		})
	}
}

func TestClient_LoadExpectationsFile(t *testing.T) {
	c, _ := newTestClient(t)

	path := filepath.Join(t.TempDir(), "expectations.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	gock.New(baseURL).Put("/mockserver/expectation").BodyString(`[]`).Reply(http.StatusCreated)

	status, err := c.LoadExpectationsFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	_, err = c.LoadExpectationsFile(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestClient_Upsert(t *testing.T) {
	c, _ := newTestClient(t)

	exp, err := RPCResult("system_name", "mockClient")
	require.NoError(t, err)

	gock.New(baseURL).
		Put("/mockserver/expectation").
		AddMatcher(func(req *http.Request, _ *gock.Request) (bool, error) {
			var got []Expectation
			if err := jsonDecode(req, &got); err != nil {
				return false, err
			}
			return len(got) == 1 && got[0].ID == exp.ID, nil
		}).
		Reply(http.StatusCreated)

	require.NoError(t, c.Upsert(context.Background(), exp))
	assert.True(t, gock.IsDone())
}

func TestClient_Status(t *testing.T) {
	c, _ := newTestClient(t)

	gock.New(baseURL).Put("/mockserver/status").Reply(http.StatusOK).JSON(map[string][]int{"ports": {1080}})

	ports, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1080}, ports)
}

func TestClient_ResetAndClear(t *testing.T) {
	c, _ := newTestClient(t)

	gock.New(baseURL).Put("/mockserver/reset").Reply(http.StatusOK)
	gock.New(baseURL).Put("/mockserver/clear").JSON(map[string]string{"path": "/"}).Reply(http.StatusOK)

	require.NoError(t, c.Reset(context.Background()))
	require.NoError(t, c.Clear(context.Background(), &HttpRequest{Path: "/"}))
	assert.True(t, gock.IsDone())
}

func TestClient_RetrieveRequests(t *testing.T) {
	c, _ := newTestClient(t)

	gock.New(baseURL).
		Put("/mockserver/retrieve").
		MatchParam("type", "REQUESTS").
		MatchParam("format", "JSON").
		Reply(http.StatusOK).
		BodyString(`[{"method":"POST","path":"/","body":{"type":"JSON","json":{"jsonrpc":"2.0","method":"system_name","params":[],"id":1}}}]`)

	recorded, err := c.RetrieveRequests(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "POST", recorded[0].Method)
	require.NotNil(t, recorded[0].Body)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"system_name","params":[],"id":1}`, string(recorded[0].Body.JSON))
}

func TestClient_Verify(t *testing.T) {
	tests := []struct {
		name      string
		replyCode int
		wantErr   error
	}{
		{name: "accepted", replyCode: http.StatusAccepted},
		{name: "not_acceptable", replyCode: http.StatusNotAcceptable, wantErr: ErrVerification},
		{name: "bad_request", replyCode: http.StatusBadRequest, wantErr: ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t)
			gock.New(baseURL).Put("/mockserver/verify").Reply(tt.replyCode).BodyString("Request not found at least once")

			matcher, err := RPCMatcher("system_name")
			require.NoError(t, err)

			err = c.Verify(context.Background(), matcher, &Times{AtLeast: 1})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
