package api

// DeployRequest is the JSON body accepted by POST /deploy. Field names
// mirror the controller's vocabulary; see the values-file fields for the
// image promotion inputs.
type DeployRequest struct {
	AppName string `json:"app-name"`
	Project string `json:"project"`

	RepoURL   string `json:"config-repo-url"`
	Branch    string `json:"config-repo-branch"`
	Tag       string `json:"config-repo-tag"`
	ChartPath string `json:"chart-path"`

	DestServer    string `json:"dest-server"`
	DestNamespace string `json:"dest-namespace"`

	ContainerImage        string `json:"container-image-address"`
	EnvironmentValuesFile string `json:"environment-values-file"`
	ImageKeyPath          string `json:"image-key-path"`
	Environment           string `json:"environment"`

	ChartValueFiles      []string `json:"chart-value-files"`
	AdditionalValueFiles []string `json:"additional-value-files"`

	AutoSync      bool `json:"auto-sync"`
	Prune         bool `json:"prune"`
	ForcePushTags bool `json:"force-push-tags"`

	SyncTimeoutSeconds int `json:"sync-timeout-seconds"`
	SyncRetryLimit     int `json:"sync-retry-limit"`
}

// DeployResponse is the JSON result returned by POST /deploy; it matches the
// result artifact contract consumed by pipeline schedulers.
type DeployResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Artifacts DeployArtifacts  `json:"artifacts"`
}

// DeployArtifacts carries the deployment outputs by artifact name.
type DeployArtifacts struct {
	ContainerImage string   `json:"container-image-deployed-address,omitempty"`
	ConfigRepoTag  string   `json:"config-repo-git-tag,omitempty"`
	ManifestPath   string   `json:"argocd-deployed-manifest,omitempty"`
	HostURLs       []string `json:"deployed-host-urls,omitempty"`
}
