package ports

import (
	"context"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
)

// DeployUseCase is the driving port for running one image promotion.
// It never returns an error: every failure is folded into the result so the
// invoking scheduler can branch on Success uniformly.
type DeployUseCase interface {
	Execute(ctx context.Context, req domain.DeploymentRequest) domain.DeploymentResult
}
