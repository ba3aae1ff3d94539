package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	noopmetric "go.opentelemetry.io/otel/metric/noop"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
	"github.com/nathantilsley/argo-promote/internal/platform/logger"
)

// scripted outcome of a single controller call
type step struct {
	output string
	err    error
}

// scriptedController implements ports.ControllerPort with pre-programmed
// responses so orchestrator transitions can be asserted deterministically.
type scriptedController struct {
	waitOpSteps  []step
	syncSteps    []step
	healthSteps  []step
	waitOpCalls  int
	syncCalls    int
	healthCalls  int
	createCalls  int
	manifestText string
}

func (c *scriptedController) SignIn(context.Context, string, string, string, bool) error {
	return nil
}

func (c *scriptedController) AddTargetCluster(context.Context, string, string, bool) error {
	return nil
}

func (c *scriptedController) CreateOrUpdateApplication(_ context.Context, _ domain.DeploymentRequest) error {
	c.createCalls++
	return nil
}

func (c *scriptedController) WaitForNoActiveOperation(context.Context, string, int) (string, error) {
	return c.next(c.waitOpSteps, &c.waitOpCalls)
}

func (c *scriptedController) RequestSync(context.Context, string, bool, int, int) (string, error) {
	return c.next(c.syncSteps, &c.syncCalls)
}

func (c *scriptedController) WaitForHealthy(context.Context, string, int) (string, error) {
	return c.next(c.healthSteps, &c.healthCalls)
}

func (c *scriptedController) FetchManifest(context.Context, string, string) (string, error) {
	return c.manifestText, nil
}

func (c *scriptedController) next(steps []step, calls *int) (string, error) {
	if *calls >= len(steps) {
		*calls++
		return "", nil // script exhausted: succeed
	}
	s := steps[*calls]
	*calls++
	return s.output, s.err
}

func repeat(s step, n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = s
	}
	return out
}

var errExit = errors.New("exit status 1")

const contentionOutput = "FATA[0001] rpc error: code = FailedPrecondition desc = another operation is already in progress"

const degradedOutput = `level=fatal msg="health state has transitioned from Progressing to Degraded"`

func newTestOrchestrator(c *scriptedController, maxSync, maxHealth int) *SyncOrchestrator {
	return NewSyncOrchestrator(
		c, nil, nil, maxSync, maxHealth,
		logger.New("error"),
		noopmetric.NewMeterProvider().Meter("test"),
	)
}

func testRequest() domain.DeploymentRequest {
	return domain.DeploymentRequest{
		AppName:            "my-app",
		Prune:              true,
		SyncTimeoutSeconds: 60,
		SyncRetryLimit:     3,
	}.WithDefaults()
}

func TestRun_HappyPath(t *testing.T) {
	c := &scriptedController{}
	o := newTestOrchestrator(c, 2, 2)

	if err := o.Run(context.Background(), testRequest()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if c.waitOpCalls != 1 || c.syncCalls != 1 || c.healthCalls != 1 {
		t.Errorf("calls = wait:%d sync:%d health:%d, want 1/1/1",
			c.waitOpCalls, c.syncCalls, c.healthCalls)
	}
}

func TestRun_WaitExistingOpFailureIsFatal(t *testing.T) {
	c := &scriptedController{
		waitOpSteps: []step{{output: "FATA[0060] timed out waiting for operation", err: errExit}},
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want fatal error")
	}
	if c.waitOpCalls != 1 {
		t.Errorf("waitOpCalls = %d, want 1 (no retry on the existing-operation wait)", c.waitOpCalls)
	}
	if c.syncCalls != 0 {
		t.Errorf("syncCalls = %d, want 0", c.syncCalls)
	}
	if !strings.Contains(err.Error(), "timed out waiting for operation") {
		t.Errorf("error should carry the captured output, got: %v", err)
	}
}

func TestRun_ContentionRetriesThenSucceeds(t *testing.T) {
	c := &scriptedController{
		syncSteps: []step{
			{output: contentionOutput, err: errExit},
			{output: "", err: nil},
		},
	}
	o := newTestOrchestrator(c, 2, 2)

	if err := o.Run(context.Background(), testRequest()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	// Each contention retry re-waits for existing operations before re-syncing.
	if c.waitOpCalls != 2 {
		t.Errorf("waitOpCalls = %d, want 2", c.waitOpCalls)
	}
	if c.syncCalls != 2 {
		t.Errorf("syncCalls = %d, want 2", c.syncCalls)
	}
}

func TestRun_ContentionRetriesAreBounded(t *testing.T) {
	c := &scriptedController{
		syncSteps: repeat(step{output: contentionOutput, err: errExit}, 5),
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want error after retry exhaustion")
	}
	// Initial attempt + maxSyncAttempts retries: the third contention
	// failure is terminal.
	if c.syncCalls != 3 {
		t.Errorf("syncCalls = %d, want 3", c.syncCalls)
	}
	if c.healthCalls != 0 {
		t.Errorf("healthCalls = %d, want 0", c.healthCalls)
	}
}

func TestRun_NonContentionSyncFailureIsNotRetried(t *testing.T) {
	c := &scriptedController{
		syncSteps: repeat(step{output: "FATA[0001] spec is invalid", err: errExit}, 3),
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want error")
	}
	if c.syncCalls != 1 {
		t.Errorf("syncCalls = %d, want 1 (fatal errors are not retried)", c.syncCalls)
	}
}

func TestRun_PruneHintAppendedWhenPruneDisabled(t *testing.T) {
	c := &scriptedController{
		syncSteps: repeat(step{output: "FATA[0001] resources require pruning", err: errExit}, 1),
	}
	o := newTestOrchestrator(c, 2, 2)

	req := testRequest()
	req.Prune = false

	err := o.Run(context.Background(), req)
	if err == nil {
		t.Fatal("Run() = nil, want error")
	}
	if !strings.Contains(err.Error(), "'prune' option is disabled") {
		t.Errorf("error should carry the prune guidance, got: %v", err)
	}
	if !strings.Contains(err.Error(), "resources require pruning") {
		t.Errorf("error should carry the original output, got: %v", err)
	}
}

func TestRun_NoPruneHintWhenPruneEnabled(t *testing.T) {
	c := &scriptedController{
		syncSteps: repeat(step{output: "FATA[0001] some fatal error", err: errExit}, 1),
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want error")
	}
	if strings.Contains(err.Error(), "'prune' option is disabled") {
		t.Errorf("prune guidance should not appear when prune is enabled, got: %v", err)
	}
}

func TestRun_DegradedHealthRetriesThenSucceeds(t *testing.T) {
	c := &scriptedController{
		healthSteps: []step{
			{output: degradedOutput, err: errExit},
			{output: "", err: nil},
		},
	}
	o := newTestOrchestrator(c, 2, 2)

	if err := o.Run(context.Background(), testRequest()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if c.healthCalls != 2 {
		t.Errorf("healthCalls = %d, want 2", c.healthCalls)
	}
	// Health retries go straight back to the health wait: no extra sync.
	if c.syncCalls != 1 {
		t.Errorf("syncCalls = %d, want 1", c.syncCalls)
	}
}

func TestRun_DegradedHealthRetriesAreBounded(t *testing.T) {
	c := &scriptedController{
		healthSteps: repeat(step{output: degradedOutput, err: errExit}, 5),
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want error after retry exhaustion")
	}
	if c.healthCalls != 3 {
		t.Errorf("healthCalls = %d, want 3", c.healthCalls)
	}
}

func TestRun_NonDegradedHealthFailureIsNotRetried(t *testing.T) {
	c := &scriptedController{
		healthSteps: repeat(step{output: "FATA[0060] timed out (60s) waiting for app health", err: errExit}, 3),
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want error")
	}
	if c.healthCalls != 1 {
		t.Errorf("healthCalls = %d, want 1", c.healthCalls)
	}
}

func TestRun_CustomRetryBounds(t *testing.T) {
	c := &scriptedController{
		syncSteps: repeat(step{output: contentionOutput, err: errExit}, 10),
	}
	o := newTestOrchestrator(c, 4, 2)

	if err := o.Run(context.Background(), testRequest()); err == nil {
		t.Fatal("Run() = nil, want error")
	}
	if c.syncCalls != 5 {
		t.Errorf("syncCalls = %d, want 5 (initial attempt + 4 retries)", c.syncCalls)
	}
}

func TestRun_CancelledContextIsDistinguishable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &scriptedController{
		waitOpSteps: []step{{output: "signal: killed", err: errExit}},
	}
	o := newTestOrchestrator(c, 2, 2)

	err := o.Run(ctx, testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want cancellation error")
	}
	if !domain.IsCancelled(err) {
		t.Errorf("IsCancelled(err) = false, want true; err = %v", err)
	}
}

func TestRun_CancellationDuringContentionIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	c := &scriptedController{}
	// Cancel as soon as the sync step runs, then report contention; the
	// orchestrator must prefer the cancellation over a retry.
	c.syncSteps = []step{{output: contentionOutput, err: errExit}}
	o := newTestOrchestrator(c, 2, 2)

	cancel()
	err := o.Run(ctx, testRequest())
	if err == nil {
		t.Fatal("Run() = nil, want cancellation error")
	}
	if !domain.IsCancelled(err) {
		t.Errorf("IsCancelled(err) = false, want true; err = %v", err)
	}
}
