package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the deployment pipeline. Adapters wrap the
// underlying failure with %w against one of these so the pipeline can
// classify without string matching.
var (
	// ErrAuth indicates a controller sign-in failure.
	ErrAuth = errors.New("authentication failed")

	// ErrConfig indicates an invalid application definition was rejected
	// by the controller.
	ErrConfig = errors.New("invalid application configuration")

	// ErrFetch indicates the deployed manifest could not be retrieved.
	ErrFetch = errors.New("manifest fetch failed")

	// ErrRepository indicates a configuration repository operation
	// (clone, commit, tag, push) failed.
	ErrRepository = errors.New("configuration repository operation failed")

	// ErrCancelled indicates the surrounding context was cancelled while a
	// blocking controller call was in flight.
	ErrCancelled = errors.New("operation cancelled")
)

// WrapAuth wraps err as an authentication failure.
func WrapAuth(err error) error {
	return fmt.Errorf("%w: %v", ErrAuth, err)
}

// WrapConfig wraps err as an application configuration failure.
func WrapConfig(err error) error {
	return fmt.Errorf("%w: %v", ErrConfig, err)
}

// WrapFetch wraps err as a manifest fetch failure.
func WrapFetch(err error) error {
	return fmt.Errorf("%w: %v", ErrFetch, err)
}

// WrapRepository wraps err as a repository failure.
func WrapRepository(err error) error {
	return fmt.Errorf("%w: %v", ErrRepository, err)
}

// IsCancelled reports whether err stems from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
