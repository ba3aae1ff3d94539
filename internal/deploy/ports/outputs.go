package ports

import (
	"context"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
)

// ControllerPort abstracts the deployment controller's command surface.
// The wait and sync operations return the combined stdout+stderr text
// captured for that single attempt alongside the error; the orchestrator's
// classifiers operate on that text and it is discarded once classified.
type ControllerPort interface {
	SignIn(ctx context.Context, api, username, password string, insecure bool) error
	AddTargetCluster(ctx context.Context, kubeAPI, token string, skipTLS bool) error
	CreateOrUpdateApplication(ctx context.Context, req domain.DeploymentRequest) error
	WaitForNoActiveOperation(ctx context.Context, appName string, timeoutSeconds int) (output string, err error)
	RequestSync(ctx context.Context, appName string, prune bool, timeoutSeconds, retryLimit int) (output string, err error)
	WaitForHealthy(ctx context.Context, appName string, timeoutSeconds int) (output string, err error)
	FetchManifest(ctx context.Context, appName, source string) (manifest string, err error)
}

// ConfigRepoPort abstracts the GitOps configuration repository: clone it,
// commit the promoted values, and publish the deployment tag.
type ConfigRepoPort interface {
	Clone(ctx context.Context, repoURL, branch, dir string) (repoDir string, err error)
	CommitAll(ctx context.Context, repoDir, message string) error
	TagAndPush(ctx context.Context, repoDir, tag string, force bool) error
}

// ValuesPatcherPort abstracts the in-place update of a single key path in a
// YAML values file. It returns the file contents before and after the patch
// so the caller can log or report the change.
type ValuesPatcherPort interface {
	SetValue(file, keyPath, value, comment string) (before, after []byte, err error)
}

// DiffPort abstracts diff computation between two texts.
type DiffPort interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}
