package domain

// Artifact keys in the result contract. Consumers (e.g. pipeline schedulers)
// look these up by name, so they are part of the wire contract.
const (
	ArtifactContainerImage = "container-image-deployed-address"
	ArtifactConfigRepoTag  = "config-repo-git-tag"
	ArtifactManifestPath   = "argocd-deployed-manifest"
	ArtifactHostURLs       = "deployed-host-urls"
)

// Artifacts collects the outputs of a deployment, keyed per the result
// contract. Fields are filled in as the pipeline progresses, so a failed
// result still carries whatever was produced before the failure.
type Artifacts struct {
	ContainerImage string   `json:"container-image-deployed-address,omitempty"`
	ConfigRepoTag  string   `json:"config-repo-git-tag,omitempty"`
	ManifestPath   string   `json:"argocd-deployed-manifest,omitempty"`
	HostURLs       []string `json:"deployed-host-urls,omitempty"`
}

// DeploymentResult is the single externally observable output of a pipeline
// run. The caller always receives one, never a raw error; it branches on
// Success. Success == false implies Message is non-empty.
type DeploymentResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Artifacts Artifacts `json:"artifacts"`
}

// SuccessResult builds a successful result carrying the given artifacts.
func SuccessResult(artifacts Artifacts) DeploymentResult {
	return DeploymentResult{Success: true, Artifacts: artifacts}
}

// FailureResult builds a failed result. The message is required; callers
// rely on it to describe the terminal error.
func FailureResult(message string, artifacts Artifacts) DeploymentResult {
	return DeploymentResult{Success: false, Message: message, Artifacts: artifacts}
}
