// Package main provides the argo-promote deploy service: it promotes
// container images into a GitOps repository and drives Argo CD to reconcile
// them into a target cluster.
package main

import (
	"fmt"
	"log/slog"

	argocdcli "github.com/nathantilsley/argo-promote/internal/deploy/adapters/argocd_cli"
	configrepo "github.com/nathantilsley/argo-promote/internal/deploy/adapters/config_repo"
	httpin "github.com/nathantilsley/argo-promote/internal/deploy/adapters/http_in"
	linediff "github.com/nathantilsley/argo-promote/internal/deploy/adapters/line_diff"
	valuesfile "github.com/nathantilsley/argo-promote/internal/deploy/adapters/values_file"
	"github.com/nathantilsley/argo-promote/internal/deploy/app"
	"github.com/nathantilsley/argo-promote/internal/deploy/ports"
	"github.com/nathantilsley/argo-promote/internal/platform/config"
	"github.com/nathantilsley/argo-promote/internal/platform/telemetry"
)

// Container holds all application dependencies.
type Container struct {
	Config        config.Config
	Logger        *slog.Logger
	DeployService ports.DeployUseCase
	DeployHandler *httpin.DeployHandler
}

// NewContainer builds and wires all dependencies.
func NewContainer(cfg config.Config, log *slog.Logger, tel *telemetry.Telemetry) (*Container, error) {
	// Adapters
	controller, err := argocdcli.New(log)
	if err != nil {
		return nil, fmt.Errorf("creating argocd adapter: %w", err)
	}
	repo := configrepo.New(cfg.GitEmail, cfg.GitName, cfg.GitUsername, cfg.GitPassword, log)
	patcher := valuesfile.New()
	unifiedDiff := linediff.New()

	// Orchestrator with configured retry bounds and the default CLI-output
	// classifiers.
	orchestrator := app.NewSyncOrchestrator(
		controller,
		nil, nil,
		cfg.MaxSyncAttempts,
		cfg.MaxHealthAttempts,
		log,
		tel.Meter,
	)

	deployService := app.NewDeployService(
		controller,
		orchestrator,
		repo,
		patcher,
		unifiedDiff,
		app.ControllerCredentials{
			API:              cfg.ArgoCDAPI,
			Username:         cfg.ArgoCDUsername,
			Password:         cfg.ArgoCDPassword,
			SkipTLS:          cfg.ArgoCDSkipTLS,
			AddTargetCluster: cfg.AddTargetCluster,
			KubeAPIToken:     cfg.KubeAPIToken,
			KubeAPISkipTLS:   cfg.KubeAPISkipTLS,
		},
		cfg.WorkDir,
		log,
		tel.Meter,
		tel.Tracer,
	)

	deployHandler := httpin.NewDeployHandler(deployService, log)

	return &Container{
		Config:        cfg,
		Logger:        log,
		DeployService: deployService,
		DeployHandler: deployHandler,
	}, nil
}
