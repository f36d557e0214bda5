// Package packs installs capability packs: git repositories carrying a
// skills/ directory (and optionally hooks/) that get copied under
// ~/.acst/packs/<org>/<repo>/ where skill discovery picks them up with an
// org/repo name prefix.
package packs

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	skillsSubdir  = "skills"
	hooksSubdir   = "hooks"
	skillFileName = "SKILL.md"
)

// ValidateRepoName validates a pack repository name.
// Expected format: "org/repo" (e.g., "synaptiai/fintech-skills").
func ValidateRepoName(repo string) error {
	if repo == "" {
		return errors.New("repository name cannot be empty")
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return errors.Errorf("invalid repository format %q: expected 'org/repo'", repo)
	}
	return nil
}

// DefaultBaseDir returns the pack installation root.
func DefaultBaseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".acst", "packs"), nil
}

// Installer installs packs from git repositories.
type Installer struct {
	baseDir string
	force   bool
}

// InstallerOption configures an Installer instance.
type InstallerOption func(*Installer)

// WithForce overwrites an existing pack installation.
func WithForce(force bool) InstallerOption {
	return func(i *Installer) {
		i.force = force
	}
}

// WithBaseDir overrides the installation root.
func WithBaseDir(dir string) InstallerOption {
	return func(i *Installer) {
		i.baseDir = dir
	}
}

// NewInstaller creates a pack installer rooted at the default packs
// directory.
func NewInstaller(opts ...InstallerOption) (*Installer, error) {
	baseDir, err := DefaultBaseDir()
	if err != nil {
		return nil, err
	}

	i := &Installer{baseDir: baseDir}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// InstallResult describes what an installation copied.
type InstallResult struct {
	Pack   string
	Skills []string
	Hooks  []string
}

// Install clones the repository and copies its skills/ and hooks/
// directories into the pack tree.
func (i *Installer) Install(ctx context.Context, repo, ref string) (*InstallResult, error) {
	if err := ValidateRepoName(repo); err != nil {
		return nil, err
	}

	tempDir, err := i.cloneRepo(ctx, repo, ref)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	return i.installFromDir(tempDir, repo)
}

// installFromDir copies pack content from a checked-out tree.
func (i *Installer) installFromDir(srcDir, repo string) (*InstallResult, error) {
	packDir := filepath.Join(i.baseDir, filepath.FromSlash(repo))
	if _, err := os.Stat(packDir); err == nil {
		if !i.force {
			return nil, errors.Errorf("pack %q is already installed (use --force to reinstall)", repo)
		}
		if err := os.RemoveAll(packDir); err != nil {
			return nil, errors.Wrapf(err, "failed to remove existing pack %q", repo)
		}
	}

	result := &InstallResult{Pack: repo}

	skills, err := findSkillDirs(filepath.Join(srcDir, skillsSubdir))
	if err != nil {
		return nil, err
	}
	for _, skill := range skills {
		name := filepath.Base(skill)
		dest := filepath.Join(packDir, skillsSubdir, name)
		if err := copyDir(skill, dest); err != nil {
			return nil, errors.Wrapf(err, "failed to install skill %s", name)
		}
		result.Skills = append(result.Skills, name)
	}

	hooksDir := filepath.Join(srcDir, hooksSubdir)
	if entries, err := os.ReadDir(hooksDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			dest := filepath.Join(packDir, hooksSubdir, entry.Name())
			if err := copyFile(filepath.Join(hooksDir, entry.Name()), dest); err != nil {
				return nil, errors.Wrapf(err, "failed to install hook %s", entry.Name())
			}
			result.Hooks = append(result.Hooks, entry.Name())
		}
	}

	if len(result.Skills) == 0 && len(result.Hooks) == 0 {
		os.RemoveAll(packDir)
		return nil, errors.New("no pack content found (expected skills/ or hooks/ directories)")
	}

	return result, nil
}

func (i *Installer) cloneRepo(ctx context.Context, repo, ref string) (string, error) {
	tempDir, err := os.MkdirTemp("", "acst-pack-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp directory")
	}

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, "https://github.com/"+repo+".git", tempDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(tempDir)
		return "", errors.Wrapf(err, "failed to clone %s: %s", repo, strings.TrimSpace(string(output)))
	}
	return tempDir, nil
}

// findSkillDirs returns the immediate subdirectories carrying a SKILL.md.
func findSkillDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read skills directory %s", dir)
	}

	var skills []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(skillPath, skillFileName)); err == nil {
			skills = append(skills, skillPath)
		}
	}
	return skills, nil
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
