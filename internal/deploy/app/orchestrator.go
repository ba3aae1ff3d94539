package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
	"github.com/nathantilsley/argo-promote/internal/deploy/ports"
)

// Default bounds for the two transient-failure retry loops. Both races they
// cover (operation overlap, health flapping) normally clear within one or
// two re-attempts; anything persisting past that is treated as real.
const (
	DefaultMaxSyncAttempts   = 2
	DefaultMaxHealthAttempts = 2
)

// SyncOrchestrator drives the controller's wait/sync/wait-health sequence to
// a terminal outcome. Two known races in the controller are retried within
// fixed bounds:
//
//   - another operation can start in the gap between the no-active-operation
//     wait and the sync request (contention); the orchestrator re-waits and
//     re-syncs, because the gap itself cannot be eliminated, only bounded
//   - child resources can flap through a transient Degraded health state
//     before settling Healthy; the orchestrator re-waits on health, assuming
//     (but not proving) eventual self-healing
//
// Everything else, including timeouts on the blocking waits, is fatal.
type SyncOrchestrator struct {
	controller        ports.ControllerPort
	classifySync      domain.Classifier
	classifyHealth    domain.Classifier
	maxSyncAttempts   int
	maxHealthAttempts int
	logger            *slog.Logger

	syncRetries   metric.Int64Counter
	healthRetries metric.Int64Counter
}

// NewSyncOrchestrator creates an orchestrator with the given retry bounds.
// Non-positive bounds fall back to the defaults. Nil classifiers fall back
// to the built-in CLI output classifiers.
func NewSyncOrchestrator(
	controller ports.ControllerPort,
	classifySync, classifyHealth domain.Classifier,
	maxSyncAttempts, maxHealthAttempts int,
	logger *slog.Logger,
	meter metric.Meter,
) *SyncOrchestrator {
	if classifySync == nil {
		classifySync = domain.ClassifySyncFailure
	}
	if classifyHealth == nil {
		classifyHealth = domain.ClassifyHealthFailure
	}
	if maxSyncAttempts <= 0 {
		maxSyncAttempts = DefaultMaxSyncAttempts
	}
	if maxHealthAttempts <= 0 {
		maxHealthAttempts = DefaultMaxHealthAttempts
	}
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("sync")
	}

	syncRetries, _ := meter.Int64Counter("argo_promote.sync_retries",
		metric.WithDescription("Sync requests retried after operation contention"))
	healthRetries, _ := meter.Int64Counter("argo_promote.health_retries",
		metric.WithDescription("Health waits retried after a transient Degraded state"))

	return &SyncOrchestrator{
		controller:        controller,
		classifySync:      classifySync,
		classifyHealth:    classifyHealth,
		maxSyncAttempts:   maxSyncAttempts,
		maxHealthAttempts: maxHealthAttempts,
		logger:            logger,
		syncRetries:       syncRetries,
		healthRetries:     healthRetries,
	}
}

// Run drives the application through wait-existing-op, sync, and wait-health
// until the application is Healthy or a fatal condition is reached. Attempts
// are strictly sequential; captured output buffers live only as long as the
// attempt that produced them.
func (o *SyncOrchestrator) Run(ctx context.Context, req domain.DeploymentRequest) error {
	if err := o.syncLoop(ctx, req); err != nil {
		return err
	}
	return o.healthLoop(ctx, req)
}

func (o *SyncOrchestrator) syncLoop(ctx context.Context, req domain.DeploymentRequest) error {
	syncAttempts := 0
	for {
		o.logger.Info("waiting for existing operations to complete",
			"app", req.AppName, "timeoutSeconds", req.SyncTimeoutSeconds)
		output, err := o.controller.WaitForNoActiveOperation(ctx, req.AppName, req.SyncTimeoutSeconds)
		if err != nil {
			if cancelErr := cancelled(ctx); cancelErr != nil {
				return cancelErr
			}
			// No transient classification here: a failed wait means the
			// controller never reached a quiescent state within the timeout.
			return fmt.Errorf("waiting for existing operations on application (%s) to complete: %v\n%s",
				req.AppName, err, output)
		}

		o.logger.Info("requesting sync",
			"app", req.AppName, "prune", req.Prune, "retryLimit", req.SyncRetryLimit)
		output, err = o.controller.RequestSync(ctx, req.AppName, req.Prune, req.SyncTimeoutSeconds, req.SyncRetryLimit)
		if err == nil {
			return nil
		}
		if cancelErr := cancelled(ctx); cancelErr != nil {
			return cancelErr
		}

		outcome := o.classifySync(output)
		if outcome == domain.OutcomeContention && syncAttempts < o.maxSyncAttempts {
			syncAttempts++
			o.syncRetries.Add(ctx, 1)
			o.logger.Warn("sync lost to a concurrent operation, re-waiting",
				"app", req.AppName, "attempt", syncAttempts, "maxAttempts", o.maxSyncAttempts)
			continue
		}

		message := fmt.Sprintf("syncing application (%s) failed: %v\n%s", req.AppName, err, output)
		if !req.Prune {
			message += domain.PruneDisabledHint
		}
		o.logger.Error("sync failed", "app", req.AppName, "outcome", outcome.String())
		return fmt.Errorf("%s", message)
	}
}

func (o *SyncOrchestrator) healthLoop(ctx context.Context, req domain.DeploymentRequest) error {
	healthAttempts := 0
	for {
		o.logger.Info("waiting for application to become healthy",
			"app", req.AppName, "timeoutSeconds", req.SyncTimeoutSeconds)
		output, err := o.controller.WaitForHealthy(ctx, req.AppName, req.SyncTimeoutSeconds)
		if err == nil {
			o.logger.Info("application healthy", "app", req.AppName)
			return nil
		}
		if cancelErr := cancelled(ctx); cancelErr != nil {
			return cancelErr
		}

		outcome := o.classifyHealth(output)
		if outcome == domain.OutcomeDegradedTransient && healthAttempts < o.maxHealthAttempts {
			healthAttempts++
			o.healthRetries.Add(ctx, 1)
			o.logger.Warn("application flapped through Degraded, re-waiting",
				"app", req.AppName, "attempt", healthAttempts, "maxAttempts", o.maxHealthAttempts)
			continue
		}

		o.logger.Error("health wait failed", "app", req.AppName, "outcome", outcome.String())
		return fmt.Errorf("waiting for application (%s) to become healthy: %v\n%s", req.AppName, err, output)
	}
}

// cancelled converts a live context error into a Cancelled-kind error so the
// pipeline can distinguish an operator abort from a controller failure.
func cancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
	}
	return nil
}
