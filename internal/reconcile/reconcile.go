// Package reconcile implements the publish-reconcile workflow: before a
// dataset is published as a feature service, any same-named service owned
// by the current user is deleted and the deletion is confirmed by polling,
// so that at most one live service of that name exists when the publish
// call lands.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"github.com/dbailuk/arcgis-automation/internal/portal"
	"go.uber.org/zap"
)

// Default workflow settings
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultDeleteTimeout = 180 * time.Second
)

// PortalAPI is the slice of the portal client the workflow depends on.
type PortalAPI interface {
	FindServices(ctx context.Context, title string) ([]portal.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	PublishItem(ctx context.Context, itemID, serviceName string) (*portal.Item, error)
	UpdateItem(ctx context.Context, itemID string, update portal.ItemUpdate) error
	UpdateServiceDefinition(ctx context.Context, serviceURL string, def portal.ServiceDefinition) error
	ShareItem(ctx context.Context, itemID string, level portal.ShareLevel) error
}

// Metadata is applied to the service after a successful publish.
type Metadata struct {
	Description string
	Tags        string
	Categories  string
}

// Request is the immutable input to one workflow run.
type Request struct {
	ItemID      string
	ServiceName string
	Metadata    Metadata
	ShareLevel  portal.ShareLevel
}

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomePublished       Outcome = "Published"
	OutcomeSkippedConflict Outcome = "SkippedConflict"
	OutcomeSkippedTimeout  Outcome = "SkippedTimeout"
	OutcomeFailed          Outcome = "Failed"
)

// Result is produced once per request. Service is set only for a
// Published outcome; Err carries the wrapped failure cause otherwise.
type Result struct {
	Request Request
	Outcome Outcome
	Service *portal.Item
	Err     error
}

// Options tunes the deletion-confirmation poll loop.
type Options struct {
	PollInterval  time.Duration
	DeleteTimeout time.Duration
}

// Reconciler runs publish-reconcile workflows against a portal session.
// It processes one request at a time; nothing here is safe for concurrent
// use and nothing needs to be.
type Reconciler struct {
	portal PortalAPI
	opts   Options
	log    *zap.SugaredLogger

	// Injected for tests; default to the real clock.
	sleep func(time.Duration)
	now   func() time.Time
}

// New creates a Reconciler. Zero option fields fall back to the defaults.
func New(p PortalAPI, opts Options, log *zap.SugaredLogger) *Reconciler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.DeleteTimeout <= 0 {
		opts.DeleteTimeout = DefaultDeleteTimeout
	}
	return &Reconciler{
		portal: p,
		opts:   opts,
		log:    log,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Run executes the workflow for a single request.
func (r *Reconciler) Run(ctx context.Context, req Request) Result {
	log := r.log.With("service", req.ServiceName, "item", req.ItemID)

	// Reconcile the namespace: remove any pre-existing service of the
	// same name and wait until the portal stops reporting it.
	existing, err := r.portal.FindServices(ctx, req.ServiceName)
	if err != nil {
		log.Errorw("Failed to query existing services", "error", err)
		return Result{Request: req, Outcome: OutcomeFailed, Err: err}
	}
	if len(existing) > 0 {
		log.Infow("Service already exists, deleting before publish", "matches", len(existing))
		if res, ok := r.clearExisting(ctx, req, existing, log); !ok {
			return res
		}
	}

	svc, err := r.portal.PublishItem(ctx, req.ItemID, req.ServiceName)
	if err != nil || svc == nil {
		// The portal rejects a publish while a same-named artifact is
		// still visible in a not-yet-deleted state. One compensating
		// delete+poll+publish cycle is the only retry performed.
		log.Warnw("Publish returned no service, attempting delete and republish", "error", err)

		existing, err = r.portal.FindServices(ctx, req.ServiceName)
		if err != nil {
			return Result{Request: req, Outcome: OutcomeFailed, Err: err}
		}
		if res, ok := r.clearExisting(ctx, req, existing, log); !ok {
			return res
		}

		svc, err = r.portal.PublishItem(ctx, req.ItemID, req.ServiceName)
		if err != nil || svc == nil {
			wrapped := fmt.Errorf("%w: service %q", errors.ErrPublishConflict, req.ServiceName)
			if err != nil {
				wrapped = fmt.Errorf("%w: service %q: %s", errors.ErrPublishConflict, req.ServiceName, err.Error())
			}
			log.Errorw("Publish failed again after compensating cycle", "error", wrapped)
			return Result{Request: req, Outcome: OutcomeSkippedConflict, Err: wrapped}
		}
	}
	log.Infow("Published feature service", "service_id", svc.ID, "url", svc.URL)

	// Post-publish configuration is best effort: the service stays
	// published even when metadata, definition or sharing calls fail.
	r.configure(ctx, req, svc, log)

	return Result{Request: req, Outcome: OutcomePublished, Service: svc}
}

// RunAll processes requests strictly sequentially. A failed request never
// stops the remaining ones.
func (r *Reconciler) RunAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res := r.Run(ctx, req)
		r.log.Infow("Publish request finished",
			"service", req.ServiceName,
			"outcome", string(res.Outcome),
		)
		results = append(results, res)
	}
	return results
}

// clearExisting deletes every matching service and polls until the portal
// reports none left. Returns ok=false with the terminal Result when the
// request cannot proceed.
func (r *Reconciler) clearExisting(ctx context.Context, req Request, existing []portal.Item, log *zap.SugaredLogger) (Result, bool) {
	for _, item := range existing {
		if err := r.portal.DeleteItem(ctx, item.ID); err != nil {
			wrapped := fmt.Errorf("%w: %s: %s", errors.ErrServiceDeletion, item.Title, err.Error())
			log.Errorw("Failed to delete existing service", "error", wrapped)
			return Result{Request: req, Outcome: OutcomeFailed, Err: wrapped}, false
		}
		log.Infow("Deleted existing service", "deleted_id", item.ID)
	}

	if len(existing) == 0 {
		return Result{}, true
	}

	if err := r.waitForDeletion(ctx, req.ServiceName, log); err != nil {
		log.Errorw("Timed out waiting for service deletion", "error", err)
		return Result{Request: req, Outcome: OutcomeSkippedTimeout, Err: err}, false
	}
	return Result{}, true
}

// waitForDeletion polls the existence query at a fixed interval until no
// match remains or the timeout elapses. Transient query errors keep the
// loop polling rather than failing the request.
func (r *Reconciler) waitForDeletion(ctx context.Context, serviceName string, log *zap.SugaredLogger) error {
	start := r.now()
	for r.now().Sub(start) < r.opts.DeleteTimeout {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s", errors.ErrDeletionTimeout, err.Error())
		}

		items, err := r.portal.FindServices(ctx, serviceName)
		if err != nil {
			log.Warnw("Existence query failed while waiting for deletion", "error", err)
		} else if len(items) == 0 {
			return nil
		}

		log.Infow("Waiting for service to be fully deleted")
		r.sleep(r.opts.PollInterval)
	}
	return fmt.Errorf("%w: service %q still visible after %s", errors.ErrDeletionTimeout, serviceName, r.opts.DeleteTimeout)
}

// configure applies metadata, service definition and sharing. Failures are
// logged and swallowed.
func (r *Reconciler) configure(ctx context.Context, req Request, svc *portal.Item, log *zap.SugaredLogger) {
	update := portal.ItemUpdate{
		Tags:        req.Metadata.Tags,
		Description: req.Metadata.Description,
		Categories:  req.Metadata.Categories,
	}
	if err := r.portal.UpdateItem(ctx, svc.ID, update); err != nil {
		log.Errorw("Failed to update service metadata", "error", err)
	} else {
		log.Infow("Updated service metadata")
	}

	if err := r.portal.UpdateServiceDefinition(ctx, svc.URL, portal.DefaultServiceDefinition()); err != nil {
		log.Errorw("Failed to update service definition", "error", err)
	} else {
		log.Infow("Service definition updated")
	}

	if err := r.portal.ShareItem(ctx, svc.ID, req.ShareLevel); err != nil {
		log.Errorw("Failed to set sharing level", "error", err)
	} else {
		log.Infow("Sharing level applied", "share_level", string(req.ShareLevel))
	}
}
