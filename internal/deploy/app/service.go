package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
	"github.com/nathantilsley/argo-promote/internal/deploy/ports"
)

// ControllerCredentials holds the sign-in parameters for the deployment
// controller. They come from service configuration, not from individual
// deployment requests.
type ControllerCredentials struct {
	API      string
	Username string
	Password string
	SkipTLS  bool

	// Optional target-cluster registration performed after sign-in.
	AddTargetCluster bool
	KubeAPIToken     string
	KubeAPISkipTLS   bool
}

// DeployService implements ports.DeployUseCase. It sequences the
// configuration repository update, the controller upsert, the sync
// orchestration, the manifest fetch, and the endpoint extraction, folding
// any fatal error into the result instead of propagating it.
type DeployService struct {
	controller    ports.ControllerPort
	orchestrator  *SyncOrchestrator
	configRepo    ports.ConfigRepoPort
	valuesPatcher ports.ValuesPatcherPort
	unifiedDiff   ports.DiffPort
	creds         ControllerCredentials
	workDir       string
	logger        *slog.Logger
	tracer        trace.Tracer

	deployments metric.Int64Counter
}

// NewDeployService creates a DeployService wired with all driven ports.
// meter and tracer may be noop providers; they must not be nil unless the
// caller wants the noop defaults.
func NewDeployService(
	controller ports.ControllerPort,
	orchestrator *SyncOrchestrator,
	configRepo ports.ConfigRepoPort,
	valuesPatcher ports.ValuesPatcherPort,
	unifiedDiff ports.DiffPort,
	creds ControllerCredentials,
	workDir string,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *DeployService {
	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter("deploy")
	}
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("deploy")
	}
	deployments, _ := meter.Int64Counter("argo_promote.deployments",
		metric.WithDescription("Completed deployment pipeline runs by outcome"))

	return &DeployService{
		controller:    controller,
		orchestrator:  orchestrator,
		configRepo:    configRepo,
		valuesPatcher: valuesPatcher,
		unifiedDiff:   unifiedDiff,
		creds:         creds,
		workDir:       workDir,
		logger:        logger,
		tracer:        tracer,
		deployments:   deployments,
	}
}

// Execute runs the full promotion pipeline for one request. It always
// returns a well-formed result; a failure at any stage short-circuits the
// remaining stages and is captured into the result message.
func (s *DeployService) Execute(ctx context.Context, req domain.DeploymentRequest) domain.DeploymentResult {
	req = req.WithDefaults()

	ctx, span := s.tracer.Start(ctx, "deploy.Execute",
		trace.WithAttributes(
			attribute.String("app", req.AppName),
			attribute.String("environment", req.Environment),
		))
	defer span.End()

	result := s.run(ctx, req)

	s.deployments.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", result.Success)))
	if result.Success {
		s.logger.Info("deployment succeeded", "app", req.AppName, "environment", req.Environment)
	} else {
		s.logger.Error("deployment failed",
			"app", req.AppName, "environment", req.Environment, "message", result.Message)
	}
	return result
}

func (s *DeployService) run(ctx context.Context, req domain.DeploymentRequest) domain.DeploymentResult {
	var artifacts domain.Artifacts

	fail := func(err error) domain.DeploymentResult {
		return domain.FailureResult(
			fmt.Sprintf("Error deploying to environment (%s): %v", req.Environment, err),
			artifacts,
		)
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}

	// Stage 1: promote the image into the configuration repository.
	if err := s.updateConfigRepo(ctx, req); err != nil {
		return fail(err)
	}
	artifacts.ContainerImage = req.ContainerImage
	artifacts.ConfigRepoTag = req.Tag

	// Stage 2: create or update the controller application and sync it.
	if err := s.signIn(ctx, req); err != nil {
		return fail(err)
	}
	if err := s.upsertApplication(ctx, req); err != nil {
		return fail(err)
	}
	if err := s.syncApplication(ctx, req); err != nil {
		return fail(err)
	}

	// Stage 3: fetch the deployed manifest and derive reachable endpoints.
	manifestPath, manifest, err := s.fetchManifest(ctx, req)
	if err != nil {
		return fail(err)
	}
	artifacts.ManifestPath = manifestPath
	artifacts.HostURLs = domain.ExtractEndpoints(manifest)

	s.logger.Info("deployed host urls determined",
		"app", req.AppName, "urls", artifacts.HostURLs)
	return domain.SuccessResult(artifacts)
}

// updateConfigRepo clones the configuration repository, patches the
// environment values file with the container image address, commits, and
// publishes the deployment tag.
func (s *DeployService) updateConfigRepo(ctx context.Context, req domain.DeploymentRequest) error {
	ctx, span := s.tracer.Start(ctx, "deploy.updateConfigRepo")
	defer span.End()

	workDir, err := os.MkdirTemp(s.workDir, "argo-promote-*")
	if err != nil {
		return domain.WrapRepository(fmt.Errorf("creating working directory: %w", err))
	}

	s.logger.Info("cloning configuration repository", "repo", req.RepoURL, "branch", req.Branch)
	repoDir, err := s.configRepo.Clone(ctx, req.RepoURL, req.Branch, filepath.Join(workDir, "deployment-config-repo"))
	if err != nil {
		return err
	}

	valuesPath := filepath.Join(repoDir, req.ChartPath, req.EnvironmentValuesFile)
	s.logger.Info("updating environment values file",
		"file", valuesPath, "key", req.ImageKeyPath, "image", req.ContainerImage)

	comment := fmt.Sprintf("promoted to %s by argo-promote", req.Environment)
	before, after, err := s.valuesPatcher.SetValue(valuesPath, req.ImageKeyPath, req.ContainerImage, comment)
	if err != nil {
		return domain.WrapRepository(fmt.Errorf("updating values file (%s): %w", valuesPath, err))
	}

	if diff := s.unifiedDiff.ComputeDiff(
		req.EnvironmentValuesFile+" (before)",
		req.EnvironmentValuesFile+" (after)",
		before, after,
	); diff != "" {
		s.logger.Info("values file changed", "file", req.EnvironmentValuesFile, "diff", diff)
	}

	message := fmt.Sprintf("Updating values for deployment to %s", req.Environment)
	if err := s.configRepo.CommitAll(ctx, repoDir, message); err != nil {
		return err
	}

	s.logger.Info("tagging and pushing configuration repository",
		"tag", req.Tag, "force", req.ForcePushTags)
	return s.configRepo.TagAndPush(ctx, repoDir, req.Tag, req.ForcePushTags)
}

func (s *DeployService) signIn(ctx context.Context, req domain.DeploymentRequest) error {
	ctx, span := s.tracer.Start(ctx, "deploy.signIn")
	defer span.End()

	s.logger.Info("signing in to deployment controller", "api", s.creds.API)
	if err := s.controller.SignIn(ctx, s.creds.API, s.creds.Username, s.creds.Password, s.creds.SkipTLS); err != nil {
		return err
	}

	if !s.creds.AddTargetCluster {
		return nil
	}
	s.logger.Info("registering target cluster with controller", "server", req.DestServer)
	return s.controller.AddTargetCluster(ctx, req.DestServer, s.creds.KubeAPIToken, s.creds.KubeAPISkipTLS)
}

func (s *DeployService) upsertApplication(ctx context.Context, req domain.DeploymentRequest) error {
	ctx, span := s.tracer.Start(ctx, "deploy.upsertApplication")
	defer span.End()

	s.logger.Info("creating or updating application",
		"app", req.AppName,
		"revision", req.Tag,
		"namespace", req.DestNamespace,
		"syncPolicy", req.SyncPolicy(),
	)
	return s.controller.CreateOrUpdateApplication(ctx, req)
}

func (s *DeployService) syncApplication(ctx context.Context, req domain.DeploymentRequest) error {
	ctx, span := s.tracer.Start(ctx, "deploy.syncApplication")
	defer span.End()

	return s.orchestrator.Run(ctx, req)
}

// fetchManifest retrieves the live manifest for the synced application and
// writes it to a file artifact so downstream steps can consume it.
func (s *DeployService) fetchManifest(ctx context.Context, req domain.DeploymentRequest) (string, []byte, error) {
	ctx, span := s.tracer.Start(ctx, "deploy.fetchManifest")
	defer span.End()

	s.logger.Info("fetching deployed manifest", "app", req.AppName)
	manifest, err := s.controller.FetchManifest(ctx, req.AppName, "live")
	if err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp(s.workDir, "argo-promote-manifest-*")
	if err != nil {
		return "", nil, domain.WrapFetch(fmt.Errorf("creating manifest directory: %w", err))
	}
	path := filepath.Join(dir, "deploy-argocd-manifest.yaml")
	if err := os.WriteFile(path, []byte(manifest), 0o600); err != nil {
		return "", nil, domain.WrapFetch(fmt.Errorf("writing manifest file: %w", err))
	}
	return path, []byte(manifest), nil
}
