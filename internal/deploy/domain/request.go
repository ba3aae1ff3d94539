package domain

import "errors"

// Sync policy values understood by the deployment controller.
const (
	SyncPolicyAutomated = "automated"
	SyncPolicyNone      = "none"
)

// DeploymentRequest describes a single image promotion. It is constructed
// once per pipeline invocation (see WithDefaults) and treated as immutable
// afterwards; all methods use value receivers.
type DeploymentRequest struct {
	AppName string
	Project string

	// Configuration repository coordinates.
	RepoURL   string
	Branch    string
	Tag       string // git tag used as the application's target revision
	ChartPath string // chart directory relative to the repository root

	// Destination cluster.
	DestServer    string
	DestNamespace string // defaults to AppName when empty

	// Image promotion.
	ContainerImage        string // full image address to deploy
	EnvironmentValuesFile string // values file patched with the image address
	ImageKeyPath          string // dotted key path inside the values file, e.g. "image.tag"
	Environment           string // target environment label, e.g. "DEV"

	// Extra values files, applied before and after the environment file
	// respectively (the controller applies them left to right).
	ChartValueFiles      []string
	AdditionalValueFiles []string

	AutoSync      bool
	Prune         bool
	ForcePushTags bool

	SyncTimeoutSeconds int
	SyncRetryLimit     int // the controller's own internal retry, not orchestrator retries
}

// WithDefaults returns a copy with derived fields filled in: the destination
// namespace falls back to the application name (matching the controller's
// one-namespace-per-app convention) and zero timeouts get a sane floor.
func (r DeploymentRequest) WithDefaults() DeploymentRequest {
	if r.DestNamespace == "" {
		r.DestNamespace = r.AppName
	}
	if r.Tag == "" {
		r.Tag = "latest"
	}
	if r.SyncTimeoutSeconds <= 0 {
		r.SyncTimeoutSeconds = 60
	}
	if r.SyncRetryLimit <= 0 {
		r.SyncRetryLimit = 3
	}
	return r
}

// SyncPolicy maps the auto-sync flag onto the controller's sync-policy value.
func (r DeploymentRequest) SyncPolicy() string {
	if r.AutoSync {
		return SyncPolicyAutomated
	}
	return SyncPolicyNone
}

// ValuesFiles assembles the ordered list of values files passed to the
// controller: chart-level files first, then the environment file, then any
// caller-supplied extras.
func (r DeploymentRequest) ValuesFiles() []string {
	files := make([]string, 0, len(r.ChartValueFiles)+1+len(r.AdditionalValueFiles))
	files = append(files, r.ChartValueFiles...)
	if r.EnvironmentValuesFile != "" {
		files = append(files, r.EnvironmentValuesFile)
	}
	files = append(files, r.AdditionalValueFiles...)
	return files
}

// Validate checks the fields without which a promotion cannot start.
func (r DeploymentRequest) Validate() error {
	switch {
	case r.AppName == "":
		return errors.New("application name is required")
	case r.RepoURL == "":
		return errors.New("configuration repository URL is required")
	case r.ChartPath == "":
		return errors.New("chart path is required")
	case r.DestServer == "":
		return errors.New("destination server is required")
	case r.ContainerImage == "":
		return errors.New("container image address is required")
	case r.EnvironmentValuesFile == "":
		return errors.New("environment values file is required")
	case r.ImageKeyPath == "":
		return errors.New("image key path is required")
	}
	return nil
}
