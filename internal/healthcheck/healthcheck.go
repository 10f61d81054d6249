// Package healthcheck probes the portal's public endpoints and verifies
// end-to-end publishing capability by round-tripping a throwaway feature
// layer. Results feed the PDF report and the alert email.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"github.com/dbailuk/arcgis-automation/internal/portal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default settings
const (
	DefaultEndpointTimeout = 10 * time.Second
	probeSettleDelay       = 5 * time.Second // Pause before deleting the probe layer
)

// Status of a single check.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
)

// Endpoint is one URL probed by the run.
type Endpoint struct {
	URL  string
	Kind string // portal, server or healthcheck
}

// CheckResult is the outcome of probing one endpoint.
type CheckResult struct {
	URL     string
	Kind    string
	Status  Status
	Latency time.Duration
	Err     string
}

// ProbeResult is the outcome of the publish round-trip.
type ProbeResult struct {
	Status  Status
	Elapsed time.Duration
	Err     string
}

// RunReport collects everything one health-check run observed.
type RunReport struct {
	ID        string
	When      time.Time
	Endpoints []CheckResult
	Probe     ProbeResult
}

// Failures lists human-readable descriptions of everything that failed.
func (r RunReport) Failures() []string {
	var failures []string
	for _, ep := range r.Endpoints {
		if ep.Status != StatusSuccess {
			failures = append(failures, fmt.Sprintf("%s (%s) - %s", ep.URL, ep.Kind, ep.Err))
		}
	}
	if r.Probe.Status != StatusSuccess {
		failures = append(failures, "ArcGIS Publishing Test: "+r.Probe.Err)
	}
	return failures
}

// ProbeAPI is the slice of the portal client the publish probe depends on.
type ProbeAPI interface {
	Username() string
	SearchItems(ctx context.Context, query portal.SearchQuery) ([]portal.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	PublishItem(ctx context.Context, itemID, serviceName string) (*portal.Item, error)
}

// Runner executes one health-check pass.
type Runner struct {
	httpClient     *http.Client
	portal         ProbeAPI
	endpoints      []Endpoint
	probeShapefile string
	log            *zap.SugaredLogger

	sleep func(time.Duration)
}

// NewRunner builds a Runner. The probe shapefile is the title of a
// shapefile item in the operator's portal content; an empty title skips
// the publish probe.
func NewRunner(p ProbeAPI, endpoints []Endpoint, probeShapefile string, log *zap.SugaredLogger) *Runner {
	return &Runner{
		httpClient:     &http.Client{Timeout: DefaultEndpointTimeout},
		portal:         p,
		endpoints:      endpoints,
		probeShapefile: probeShapefile,
		log:            log,
		sleep:          time.Sleep,
	}
}

// Run probes every endpoint in order, then runs the publish probe.
func (r *Runner) Run(ctx context.Context) RunReport {
	report := RunReport{
		ID:   uuid.NewString(),
		When: time.Now(),
	}
	r.log.Infow("Starting health-check run", "run_id", report.ID, "endpoints", len(r.endpoints))

	for _, ep := range r.endpoints {
		result := r.checkEndpoint(ctx, ep)
		report.Endpoints = append(report.Endpoints, result)
	}

	report.Probe = r.runPublishProbe(ctx)

	r.log.Infow("Health-check run completed",
		"run_id", report.ID,
		"failures", len(report.Failures()),
	)
	return report
}

// checkEndpoint measures status and latency for one endpoint. A
// healthcheck-kind endpoint must additionally report success in its body.
func (r *Runner) checkEndpoint(ctx context.Context, ep Endpoint) CheckResult {
	result := CheckResult{URL: ep.URL, Kind: ep.Kind}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		result.Status = StatusFail
		result.Err = err.Error()
		return result
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Status = StatusFail
		result.Err = err.Error()
		r.log.Errorw("Endpoint is not accessible", "url", ep.URL, "kind", ep.Kind, "error", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Status = StatusFail
		result.Err = fmt.Sprintf("status code %d", resp.StatusCode)
		r.log.Errorw("Endpoint returned unexpected status", "url", ep.URL, "status", resp.StatusCode)
		return result
	}

	if ep.Kind == "healthcheck" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if !strings.Contains(strings.ToLower(string(body)), "succes") {
			result.Status = StatusFail
			result.Err = errors.ErrUnexpectedContent.Error()
			r.log.Errorw("Healthcheck endpoint returned unexpected content", "url", ep.URL)
			return result
		}
	}

	result.Status = StatusSuccess
	r.log.Infow("Endpoint is accessible", "url", ep.URL, "latency", result.Latency.String())
	return result
}

// runPublishProbe publishes the configured shapefile as a feature layer
// and deletes it again, proving the portal's publishing pipeline works.
func (r *Runner) runPublishProbe(ctx context.Context) ProbeResult {
	start := time.Now()
	fail := func(err error) ProbeResult {
		r.log.Errorw("Publishing probe failed", "error", err)
		return ProbeResult{Status: StatusFail, Elapsed: time.Since(start), Err: err.Error()}
	}

	if r.probeShapefile == "" {
		return fail(fmt.Errorf("%w: no probe shapefile configured", errors.ErrProbePublishFailed))
	}

	owner := r.portal.Username()

	// Remove a stale probe layer left over from an earlier failed run.
	stale, err := r.portal.SearchItems(ctx, portal.SearchQuery{
		Title:    r.probeShapefile,
		Owner:    owner,
		ItemType: "Feature Service",
		Max:      1,
	})
	if err != nil {
		return fail(err)
	}
	for _, item := range stale {
		r.log.Infow("Deleting stale probe layer", "item", item.ID)
		if err := r.portal.DeleteItem(ctx, item.ID); err != nil {
			return fail(err)
		}
	}

	sources, err := r.portal.SearchItems(ctx, portal.SearchQuery{
		Title:    r.probeShapefile,
		Owner:    owner,
		ItemType: "Shapefile",
		Max:      1,
	})
	if err != nil {
		return fail(err)
	}
	if len(sources) == 0 {
		return fail(fmt.Errorf("%w: shapefile not found in user content", errors.ErrProbePublishFailed))
	}

	published, err := r.portal.PublishItem(ctx, sources[0].ID, r.probeShapefile)
	if err != nil {
		return fail(err)
	}
	if published == nil {
		return fail(fmt.Errorf("%w: probe layer failed to publish", errors.ErrProbePublishFailed))
	}
	r.log.Infow("Probe layer published", "item", published.ID)

	// Give the service a moment to initialize before tearing it down.
	r.sleep(probeSettleDelay)

	if err := r.portal.DeleteItem(ctx, published.ID); err != nil {
		return fail(err)
	}
	r.log.Infow("Probe layer deleted")

	return ProbeResult{Status: StatusSuccess, Elapsed: time.Since(start)}
}
