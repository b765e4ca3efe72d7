package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"mercator-hq/apigate/pkg/config"
)

// PullResult describes one pull.
type PullResult struct {
	FromSHA string
	ToSHA   string
}

// Changed reports whether HEAD moved.
func (p PullResult) Changed() bool {
	return p.FromSHA != p.ToSHA
}

// Repository is a local clone of the catalog repository.
type Repository struct {
	cfg       config.CatalogGitConfig
	localPath string
	auth      transport.AuthMethod

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository validates cfg and prepares a Repository. Nothing is
// fetched until Clone.
func NewRepository(cfg config.CatalogGitConfig) (*Repository, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.File == "" {
		return nil, fmt.Errorf("catalog file cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultCatalogGitTimeout
	}

	auth, err := authMethod(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create git auth: %w", err)
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "apigate-catalog")
	}

	return &Repository{cfg: cfg, localPath: localPath, auth: auth}, nil
}

// CatalogPath is the catalog file inside the clone.
func (r *Repository) CatalogPath() string {
	return filepath.Join(r.localPath, r.cfg.File)
}

// Clone clones the tracked branch, or opens an existing clone at the local
// path.
func (r *Repository) Clone(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing clone: %w", err)
		}
		r.repo = repo
		return nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Auth:          r.auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", r.cfg.Repository, err)
	}

	r.repo = repo
	return nil
}

// Pull fast-forwards the clone to the remote branch.
func (r *Repository) Pull(ctx context.Context) (PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return PullResult{}, fmt.Errorf("repository not cloned")
	}

	from, err := r.repo.Head()
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to read HEAD: %w", err)
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to open worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Auth:          r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return PullResult{}, fmt.Errorf("failed to pull: %w", err)
	}

	to, err := r.repo.Head()
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to read HEAD: %w", err)
	}

	return PullResult{FromSHA: from.Hash().String(), ToSHA: to.Hash().String()}, nil
}

// Commit describes the checked-out commit.
type Commit struct {
	SHA     string
	Author  string
	When    time.Time
	Message string
}

// Head returns the checked-out commit.
func (r *Repository) Head() (*Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return nil, fmt.Errorf("repository not cloned")
	}

	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read commit: %w", err)
	}

	return &Commit{
		SHA:     c.Hash.String(),
		Author:  c.Author.Name,
		When:    c.Author.When,
		Message: c.Message,
	}, nil
}
