package packs

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Remover removes installed packs and lists what is installed.
type Remover struct {
	baseDir string
}

// RemoverOption configures a Remover instance.
type RemoverOption func(*Remover)

// WithRemoverBaseDir overrides the installation root.
func WithRemoverBaseDir(dir string) RemoverOption {
	return func(r *Remover) {
		r.baseDir = dir
	}
}

// NewRemover creates a pack remover rooted at the default packs directory.
func NewRemover(opts ...RemoverOption) (*Remover, error) {
	baseDir, err := DefaultBaseDir()
	if err != nil {
		return nil, err
	}

	r := &Remover{baseDir: baseDir}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Remove deletes an installed pack.
func (r *Remover) Remove(repo string) error {
	if err := ValidateRepoName(repo); err != nil {
		return err
	}

	packDir := filepath.Join(r.baseDir, filepath.FromSlash(repo))
	if _, err := os.Stat(packDir); err != nil {
		return errors.Errorf("pack %q is not installed", repo)
	}

	if err := os.RemoveAll(packDir); err != nil {
		return errors.Wrapf(err, "failed to remove pack %q", repo)
	}

	// Drop the org directory when it is now empty.
	orgDir := filepath.Dir(packDir)
	if entries, err := os.ReadDir(orgDir); err == nil && len(entries) == 0 {
		os.Remove(orgDir)
	}
	return nil
}

// ListPacks returns installed pack names in org/repo form, sorted.
func (r *Remover) ListPacks() ([]string, error) {
	orgs, err := os.ReadDir(r.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read packs directory %s", r.baseDir)
	}

	var packs []string
	for _, org := range orgs {
		if !org.IsDir() {
			continue
		}
		repos, err := os.ReadDir(filepath.Join(r.baseDir, org.Name()))
		if err != nil {
			continue
		}
		for _, repo := range repos {
			if repo.IsDir() {
				packs = append(packs, org.Name()+"/"+repo.Name())
			}
		}
	}

	sort.Strings(packs)
	return packs, nil
}
