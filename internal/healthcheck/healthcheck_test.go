package healthcheck

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProbePortal struct {
	searchResults map[string][]portal.Item // keyed by item type
	searchErr     error
	deleteErr     error
	deleted       []string
	published     *portal.Item
	publishErr    error
	publishCalls  int
}

func (f *fakeProbePortal) Username() string { return "operator" }

func (f *fakeProbePortal) SearchItems(_ context.Context, q portal.SearchQuery) ([]portal.Item, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[q.ItemType], nil
}

func (f *fakeProbePortal) DeleteItem(_ context.Context, itemID string) error {
	f.deleted = append(f.deleted, itemID)
	return f.deleteErr
}

func (f *fakeProbePortal) PublishItem(_ context.Context, _, _ string) (*portal.Item, error) {
	f.publishCalls++
	return f.published, f.publishErr
}

func newTestRunner(p ProbeAPI, endpoints []Endpoint, shapefile string) *Runner {
	r := NewRunner(p, endpoints, shapefile, zap.NewNop().Sugar())
	r.sleep = func(time.Duration) {}
	return r
}

func TestCheckEndpoint_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestRunner(&fakeProbePortal{}, nil, "")
	result := r.checkEndpoint(context.Background(), Endpoint{URL: srv.URL, Kind: "portal"})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.Err)
	assert.Greater(t, result.Latency, time.Duration(0))
}

func TestCheckEndpoint_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := newTestRunner(&fakeProbePortal{}, nil, "")
	result := r.checkEndpoint(context.Background(), Endpoint{URL: srv.URL, Kind: "server"})

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Err, "502")
}

func TestCheckEndpoint_HealthcheckBodyMatch(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Status
	}{
		{"reports success", `{"status":"Success"}`, StatusSuccess},
		{"truncated spelling accepted", `succes`, StatusSuccess},
		{"unexpected content", `{"status":"degraded"}`, StatusFail},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			r := newTestRunner(&fakeProbePortal{}, nil, "")
			result := r.checkEndpoint(context.Background(), Endpoint{URL: srv.URL, Kind: "healthcheck"})
			assert.Equal(t, tc.want, result.Status)
		})
	}
}

func TestCheckEndpoint_Unreachable(t *testing.T) {
	r := newTestRunner(&fakeProbePortal{}, nil, "")
	result := r.checkEndpoint(context.Background(), Endpoint{URL: "http://127.0.0.1:1", Kind: "portal"})

	assert.Equal(t, StatusFail, result.Status)
	assert.NotEmpty(t, result.Err)
}

func TestPublishProbe_RoundTrip(t *testing.T) {
	fake := &fakeProbePortal{
		searchResults: map[string][]portal.Item{
			"Shapefile": {{ID: "shp-1", Title: "PID"}},
		},
		published: &portal.Item{ID: "probe-1", Title: "PID"},
	}
	r := newTestRunner(fake, nil, "PID")

	result := r.runPublishProbe(context.Background())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, fake.publishCalls)
	assert.Equal(t, []string{"probe-1"}, fake.deleted)
}

func TestPublishProbe_DeletesStaleLayerFirst(t *testing.T) {
	fake := &fakeProbePortal{
		searchResults: map[string][]portal.Item{
			"Feature Service": {{ID: "stale-1", Title: "PID"}},
			"Shapefile":       {{ID: "shp-1", Title: "PID"}},
		},
		published: &portal.Item{ID: "probe-1", Title: "PID"},
	}
	r := newTestRunner(fake, nil, "PID")

	result := r.runPublishProbe(context.Background())

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, []string{"stale-1", "probe-1"}, fake.deleted)
}

func TestPublishProbe_ShapefileMissing(t *testing.T) {
	fake := &fakeProbePortal{searchResults: map[string][]portal.Item{}}
	r := newTestRunner(fake, nil, "PID")

	result := r.runPublishProbe(context.Background())

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Err, "shapefile not found")
	assert.Zero(t, fake.publishCalls)
}

func TestPublishProbe_PublishReturnsNothing(t *testing.T) {
	fake := &fakeProbePortal{
		searchResults: map[string][]portal.Item{
			"Shapefile": {{ID: "shp-1", Title: "PID"}},
		},
	}
	r := newTestRunner(fake, nil, "PID")

	result := r.runPublishProbe(context.Background())

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Err, "failed to publish")
}

func TestPublishProbe_SearchError(t *testing.T) {
	fake := &fakeProbePortal{searchErr: stderrors.New("portal down")}
	r := newTestRunner(fake, nil, "PID")

	result := r.runPublishProbe(context.Background())

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Err, "portal down")
}

func TestRun_CollectsEndpointAndProbeResults(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failSrv.Close()

	fake := &fakeProbePortal{
		searchResults: map[string][]portal.Item{
			"Shapefile": {{ID: "shp-1", Title: "PID"}},
		},
		published: &portal.Item{ID: "probe-1", Title: "PID"},
	}
	endpoints := []Endpoint{
		{URL: okSrv.URL, Kind: "portal"},
		{URL: failSrv.URL, Kind: "server"},
	}
	r := newTestRunner(fake, endpoints, "PID")

	report := r.Run(context.Background())

	require.Len(t, report.Endpoints, 2)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, StatusSuccess, report.Endpoints[0].Status)
	assert.Equal(t, StatusFail, report.Endpoints[1].Status)
	assert.Equal(t, StatusSuccess, report.Probe.Status)

	failures := report.Failures()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], failSrv.URL)
}
