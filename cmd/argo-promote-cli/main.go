// Command argo-promote-cli runs a single image promotion from the command
// line and prints the deployment result as JSON. It exits non-zero when the
// deployment failed so pipeline schedulers can branch on the exit code.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	argocdcli "github.com/nathantilsley/argo-promote/internal/deploy/adapters/argocd_cli"
	configrepo "github.com/nathantilsley/argo-promote/internal/deploy/adapters/config_repo"
	linediff "github.com/nathantilsley/argo-promote/internal/deploy/adapters/line_diff"
	valuesfile "github.com/nathantilsley/argo-promote/internal/deploy/adapters/values_file"
	"github.com/nathantilsley/argo-promote/internal/deploy/app"
	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
	"github.com/nathantilsley/argo-promote/internal/platform/config"
	"github.com/nathantilsley/argo-promote/internal/platform/logger"
	"github.com/nathantilsley/argo-promote/internal/platform/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		appName     = flag.String("app", "", "Application name (required)")
		project     = flag.String("project", "", "Controller project (defaults to ARGOCD_PROJECT)")
		repoURL     = flag.String("repo", "", "Configuration repository URL (required)")
		branch      = flag.String("branch", "main", "Configuration repository branch")
		tag         = flag.String("tag", "", "Deployment tag to publish (defaults to 'latest')")
		chartPath   = flag.String("chart-path", "", "Chart directory relative to the repository root (required)")
		destServer  = flag.String("dest-server", "https://kubernetes.default.svc", "Destination cluster API server")
		namespace   = flag.String("namespace", "", "Destination namespace (defaults to the app name)")
		image       = flag.String("image", "", "Container image address to deploy (required)")
		valuesFile  = flag.String("values-file", "", "Environment values file to patch (required)")
		imageKey    = flag.String("image-key", "image.tag", "Dotted key path updated with the image address")
		environment = flag.String("environment", "DEV", "Target environment label")
		extraValues = flag.String("extra-values", "", "Comma-separated additional values files")
		autoSync    = flag.Bool("auto-sync", false, "Enable the controller's automated sync policy")
		prune       = flag.Bool("prune", false, "Prune extraneous resources during sync")
		forceTags   = flag.Bool("force-push-tags", false, "Force-push the deployment tag")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	controller, err := argocdcli.New(log)
	if err != nil {
		return fmt.Errorf("creating argocd adapter: %w", err)
	}

	orchestrator := app.NewSyncOrchestrator(
		controller, nil, nil,
		cfg.MaxSyncAttempts, cfg.MaxHealthAttempts,
		log, tel.Meter,
	)

	service := app.NewDeployService(
		controller,
		orchestrator,
		configrepo.New(cfg.GitEmail, cfg.GitName, cfg.GitUsername, cfg.GitPassword, log),
		valuesfile.New(),
		linediff.New(),
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

	requestProject := *project
	if requestProject == "" {
		requestProject = cfg.ArgoCDProject
	}

	req := domain.DeploymentRequest{
		AppName:               *appName,
		Project:               requestProject,
		RepoURL:               *repoURL,
		Branch:                *branch,
		Tag:                   *tag,
		ChartPath:             *chartPath,
		DestServer:            *destServer,
		DestNamespace:         *namespace,
		ContainerImage:        *image,
		EnvironmentValuesFile: *valuesFile,
		ImageKeyPath:          *imageKey,
		Environment:           *environment,
		AdditionalValueFiles:  splitList(*extraValues),
		AutoSync:              *autoSync,
		Prune:                 *prune,
		ForcePushTags:         *forceTags,
		SyncTimeoutSeconds:    cfg.SyncTimeoutSeconds,
		SyncRetryLimit:        cfg.SyncRetryLimit,
	}

	result := service.Execute(ctx, req)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		return fmt.Errorf("deployment failed: %s", result.Message)
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
