// Package configrepo implements ports.ConfigRepoPort over the git CLI:
// clone the GitOps configuration repository, commit promoted values, and
// publish the deployment tag.
package configrepo

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"

	"github.com/nathantilsley/argo-promote/internal/deploy/domain"
)

var repoURLPattern = regexp.MustCompile(`^(?P<protocol>https://|http://)?(?P<address>.*)$`)

// Adapter performs git operations with a fixed committer identity and
// optional HTTP(S) credentials.
type Adapter struct {
	gitEmail string
	gitName  string
	username string
	password string
	logger   *slog.Logger
}

// New creates a git adapter. username/password are applied only to http(s)
// remotes; ssh remotes authenticate through the ambient ssh agent.
func New(gitEmail, gitName, username, password string, logger *slog.Logger) *Adapter {
	return &Adapter{
		gitEmail: gitEmail,
		gitName:  gitName,
		username: username,
		password: password,
		logger:   logger,
	}
}

// git runs a git command, optionally inside repoDir, and returns combined output.
func (a *Adapter) git(ctx context.Context, repoDir string, args ...string) (string, error) {
	if repoDir != "" {
		args = append([]string{"-C", repoDir}, args...)
	}
	//nolint:gosec // G204: arguments come from trusted service configuration
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Clone clones repoURL into dir and checks out branch, creating the branch
// when it does not exist. It also configures the committer identity for
// subsequent commits in the clone.
func (a *Adapter) Clone(ctx context.Context, repoURL, branch, dir string) (string, error) {
	cloneURL := authURL(repoURL, a.username, a.password)

	if output, err := a.git(ctx, "", "clone", cloneURL, dir); err != nil {
		return "", domain.WrapRepository(fmt.Errorf("cloning repository (%s): %v\n%s", repoURL, err, output))
	}

	// No atomic way in git to check out a new-or-existing branch, so try
	// existing first and fall back to creating it.
	if _, err := a.git(ctx, dir, "checkout", branch); err != nil {
		if output, err := a.git(ctx, dir, "checkout", "-b", branch); err != nil {
			return "", domain.WrapRepository(fmt.Errorf(
				"checking out new or existing branch (%s) from repository (%s): %v\n%s",
				branch, repoURL, err, output))
		}
	}

	if output, err := a.git(ctx, dir, "config", "user.email", a.gitEmail); err != nil {
		return "", domain.WrapRepository(fmt.Errorf("configuring git user.email: %v\n%s", err, output))
	}
	if output, err := a.git(ctx, dir, "config", "user.name", a.gitName); err != nil {
		return "", domain.WrapRepository(fmt.Errorf("configuring git user.name: %v\n%s", err, output))
	}

	return dir, nil
}

// CommitAll stages and commits all changes in repoDir. --allow-empty keeps
// re-promotions of an unchanged image from failing the pipeline.
func (a *Adapter) CommitAll(ctx context.Context, repoDir, message string) error {
	if output, err := a.git(ctx, repoDir, "add", "--all"); err != nil {
		return domain.WrapRepository(fmt.Errorf("staging changes in repository (%s): %v\n%s", repoDir, err, output))
	}
	if output, err := a.git(ctx, repoDir, "commit", "--allow-empty", "--all", "--message", message); err != nil {
		return domain.WrapRepository(fmt.Errorf("committing changes in repository (%s): %v\n%s", repoDir, err, output))
	}
	return nil
}

// TagAndPush pushes the current branch, creates tag at HEAD, and pushes the
// tag. force re-points and force-pushes an existing tag.
func (a *Adapter) TagAndPush(ctx context.Context, repoDir, tag string, force bool) error {
	if output, err := a.git(ctx, repoDir, "push"); err != nil {
		return domain.WrapRepository(fmt.Errorf("pushing commits from repository (%s): %v\n%s", repoDir, err, output))
	}

	tagArgs := []string{"tag", tag}
	if force {
		tagArgs = []string{"tag", "--force", tag}
	}
	if output, err := a.git(ctx, repoDir, tagArgs...); err != nil {
		return domain.WrapRepository(fmt.Errorf("tagging repository (%s) with tag (%s): %v\n%s", repoDir, tag, err, output))
	}

	pushArgs := []string{"push", "origin", tag}
	if force {
		pushArgs = append(pushArgs, "--force")
	}
	if output, err := a.git(ctx, repoDir, pushArgs...); err != nil {
		return domain.WrapRepository(fmt.Errorf("pushing tag (%s) from repository (%s): %v\n%s", tag, repoDir, err, output))
	}

	a.logger.Info("configuration repository tagged and pushed", "tag", tag, "force", force)
	return nil
}

// authURL embeds username:password into http(s) repository URLs. Other
// protocols (ssh, file) are returned unchanged.
func authURL(repoURL, username, password string) string {
	if username == "" || password == "" {
		return repoURL
	}
	match := repoURLPattern.FindStringSubmatch(repoURL)
	protocol := match[1]
	address := match[2]
	if protocol == "" {
		return repoURL
	}
	return protocol + username + ":" + password + "@" + address
}
