// Package argocdcli implements ports.ControllerPort by shelling out to the
// argocd CLI. Wait and sync operations capture combined stdout+stderr text
// for the orchestrator's failure classifiers.
package argocdcli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
)

// Adapter wraps the argocd binary.
type Adapter struct {
	argocdBin string
	logger    *slog.Logger
}

// New creates a new argocd CLI adapter. It verifies that the argocd binary
// is available on PATH at construction time.
func New(logger *slog.Logger) (*Adapter, error) {
	argocdBin, err := exec.LookPath("argocd")
	if err != nil {
		return nil, fmt.Errorf("argocd binary not found: %w", err)
	}
	return &Adapter{argocdBin: argocdBin, logger: logger}, nil
}

// run executes argocd with the given arguments and returns the combined
// stdout+stderr output. The buffer belongs to this single invocation.
func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, a.argocdBin, args...)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	return combined.String(), err
}

// SignIn authenticates against the controller API.
func (a *Adapter) SignIn(ctx context.Context, api, username, password string, insecure bool) error {
	a.logger.Info("argocd login", "api", api, "insecure", insecure)
	output, err := a.run(ctx, buildSignInArgs(api, username, password, insecure)...)
	if err != nil {
		return domain.WrapAuth(fmt.Errorf("argocd login failed: %v\n%s", err, output))
	}
	return nil
}

// AddTargetCluster registers the destination cluster with the controller
// using a bearer token, so the controller can reconcile into it.
func (a *Adapter) AddTargetCluster(ctx context.Context, kubeAPI, token string, skipTLS bool) error {
	args := []string{"cluster", "add", "--name", "target-cluster", "--server", kubeAPI, "--auth-token", token, "--yes"}
	if skipTLS {
		args = append(args, "--insecure")
	}
	output, err := a.run(ctx, args...)
	if err != nil {
		return domain.WrapConfig(fmt.Errorf("adding target cluster (%s) failed: %v\n%s", kubeAPI, err, output))
	}
	return nil
}

// CreateOrUpdateApplication upserts the application definition. The --upsert
// flag makes the call idempotent: repeating it with an identical request is
// not an error.
func (a *Adapter) CreateOrUpdateApplication(ctx context.Context, req domain.DeploymentRequest) error {
	output, err := a.run(ctx, buildCreateArgs(req)...)
	if err != nil {
		return domain.WrapConfig(fmt.Errorf("creating or updating application (%s) failed: %v\n%s",
			req.AppName, err, output))
	}
	return nil
}

// WaitForNoActiveOperation blocks until the controller reports no in-flight
// operation for the application, or the timeout elapses.
func (a *Adapter) WaitForNoActiveOperation(ctx context.Context, appName string, timeoutSeconds int) (string, error) {
	return a.run(ctx,
		"app", "wait", appName,
		"--operation",
		"--timeout", strconv.Itoa(timeoutSeconds),
	)
}

// RequestSync issues a sync request for the application. retryLimit is the
// controller's own internal retry, distinct from orchestrator retries.
func (a *Adapter) RequestSync(ctx context.Context, appName string, prune bool, timeoutSeconds, retryLimit int) (string, error) {
	return a.run(ctx, buildSyncArgs(appName, prune, timeoutSeconds, retryLimit)...)
}

// WaitForHealthy blocks until the application reports Healthy, or the
// timeout elapses.
func (a *Adapter) WaitForHealthy(ctx context.Context, appName string, timeoutSeconds int) (string, error) {
	return a.run(ctx,
		"app", "wait", appName,
		"--health",
		"--timeout", strconv.Itoa(timeoutSeconds),
	)
}

// FetchManifest retrieves the application's manifest from the given source
// ("live" or "git").
func (a *Adapter) FetchManifest(ctx context.Context, appName, source string) (string, error) {
	output, err := a.run(ctx, "app", "manifests", appName, "--source", source)
	if err != nil {
		return "", domain.WrapFetch(fmt.Errorf("fetching manifest for application (%s) from source (%s) failed: %v\n%s",
			appName, source, err, output))
	}
	return output, nil
}

func buildSignInArgs(api, username, password string, insecure bool) []string {
	args := []string{"login", api, "--username", username, "--password", password}
	if insecure {
		args = append(args, "--insecure")
	}
	return args
}

func buildCreateArgs(req domain.DeploymentRequest) []string {
	args := []string{
		"app", "create", req.AppName,
		"--repo", req.RepoURL,
		"--revision", req.Tag,
		"--path", req.ChartPath,
		"--dest-server", req.DestServer,
		"--dest-namespace", req.DestNamespace,
		"--sync-policy", req.SyncPolicy(),
		"--project", req.Project,
		"--upsert",
	}
	for _, vf := range req.ValuesFiles() {
		args = append(args, "--values="+vf)
	}
	return args
}

func buildSyncArgs(appName string, prune bool, timeoutSeconds, retryLimit int) []string {
	args := []string{"app", "sync", appName}
	if prune {
		args = append(args, "--prune")
	}
	args = append(args,
		"--timeout", strconv.Itoa(timeoutSeconds),
		"--retry-limit", strconv.Itoa(retryLimit),
	)
	return args
}
