// Package httpin handles incoming deployment requests over HTTP.
package httpin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nathantilsley/argo-promote/api"
	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
	"github.com/nathantilsley/argo-promote/internal/deploy/ports"
)

// Deployments are long-running (two controller waits each); bound how many
// run at once so a burst of requests cannot exhaust the host.
const maxConcurrentDeploys = 2

// DeployHandler handles POST /deploy requests.
type DeployHandler struct {
	useCase ports.DeployUseCase
	logger  *slog.Logger
	sem     chan struct{}
}

// NewDeployHandler creates a new deploy handler.
func NewDeployHandler(uc ports.DeployUseCase, logger *slog.Logger) *DeployHandler {
	return &DeployHandler{
		useCase: uc,
		logger:  logger,
		sem:     make(chan struct{}, maxConcurrentDeploys),
	}
}

// ServeHTTP decodes the request, runs the pipeline synchronously, and writes
// the result. The response status is 200 even for failed deployments: the
// pipeline contract is that callers branch on the result's success field,
// not on transport-level errors.
func (h *DeployHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body api.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Error("invalid deploy request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req := toDomain(body)
	h.logger.Info("processing deployment request",
		"app", req.AppName,
		"environment", req.Environment,
		"image", req.ContainerImage,
	)

	select {
	case h.sem <- struct{}{}: // acquire worker slot
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	defer func() { <-h.sem }() // release worker slot

	result := h.useCase.Execute(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toResponse(result)); err != nil {
		h.logger.Error("failed to write deploy response", "error", err)
	}
}

func toDomain(body api.DeployRequest) domain.DeploymentRequest {
	return domain.DeploymentRequest{
		AppName:               body.AppName,
		Project:               body.Project,
		RepoURL:               body.RepoURL,
		Branch:                body.Branch,
		Tag:                   body.Tag,
		ChartPath:             body.ChartPath,
		DestServer:            body.DestServer,
		DestNamespace:         body.DestNamespace,
		ContainerImage:        body.ContainerImage,
		EnvironmentValuesFile: body.EnvironmentValuesFile,
		ImageKeyPath:          body.ImageKeyPath,
		Environment:           body.Environment,
		ChartValueFiles:       body.ChartValueFiles,
		AdditionalValueFiles:  body.AdditionalValueFiles,
		AutoSync:              body.AutoSync,
		Prune:                 body.Prune,
		ForcePushTags:         body.ForcePushTags,
		SyncTimeoutSeconds:    body.SyncTimeoutSeconds,
		SyncRetryLimit:        body.SyncRetryLimit,
	}
}

func toResponse(result domain.DeploymentResult) api.DeployResponse {
	return api.DeployResponse{
		Success: result.Success,
		Message: result.Message,
		Artifacts: api.DeployArtifacts{
			ContainerImage: result.Artifacts.ContainerImage,
			ConfigRepoTag:  result.Artifacts.ConfigRepoTag,
			ManifestPath:   result.Artifacts.ManifestPath,
			HostURLs:       result.Artifacts.HostURLs,
		},
	}
}
