package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// validateWorkers caps concurrent document validation
const validateWorkers = 8

// Validate checks a loaded skill's frontmatter against the capability
// contract. All problems are reported together as a multierror.
func Validate(s *Skill) error {
	var result *multierror.Error

	if !ValidName(s.Name) {
		result = multierror.Append(result, errors.Errorf("invalid name %q: must be lowercase alphanumeric segments joined by hyphens", s.Name))
	}
	if s.Layer != "" && !s.Layer.Valid() {
		result = multierror.Append(result, errors.Errorf("invalid layer %q", s.Layer))
	}
	if s.Risk != "" && !s.Risk.Valid() {
		result = multierror.Append(result, errors.Errorf("invalid risk %q", s.Risk))
	}
	if s.Trust != nil && (*s.Trust < 0 || *s.Trust > 1) {
		result = multierror.Append(result, errors.Errorf("trust %v out of range [0, 1]", *s.Trust))
	}
	for _, pattern := range s.AllowedTools {
		if _, err := glob.Compile(pattern); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "invalid allowed-tools pattern %q", pattern))
		}
	}
	for _, name := range append(append([]string{}, s.Requires...), s.SoftRequires...) {
		if name == s.Name {
			result = multierror.Append(result, errors.Errorf("%q depends on itself", s.Name))
		}
	}

	return result.ErrorOrNil()
}

// Problem is a validation failure tied to a skill document path.
type Problem struct {
	Path string
	Err  error
}

// ValidateAll loads and validates every skill document reachable from the
// discovery's directories, in parallel. Returns problems sorted by path.
func (d *Discovery) ValidateAll(ctx context.Context) ([]Problem, error) {
	paths := d.skillFilePaths()

	var (
		mu       sync.Mutex
		problems []Problem
	)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(validateWorkers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			skill, err := LoadSkill(path)
			if err == nil {
				err = Validate(skill)
			}
			if err != nil {
				mu.Lock()
				problems = append(problems, Problem{Path: path, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(problems, func(i, j int) bool { return problems[i].Path < problems[j].Path })
	return problems, nil
}

// skillFilePaths walks the discovery directories collecting every SKILL.md
func (d *Discovery) skillFilePaths() []string {
	var paths []string
	for _, dir := range d.Dirs() {
		_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if filepath.Base(path) == skillFileName {
				paths = append(paths, path)
			}
			return nil
		})
	}
	return paths
}
