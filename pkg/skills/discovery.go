package skills

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs []string
	packDirs  []packDirConfig
}

// packDirConfig represents a capability-pack directory with its name prefix
type packDirConfig struct {
	dir    string
	prefix string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories. Entries may contain
// doublestar glob patterns; each match that is a directory is searched.
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = expandDirPatterns(dirs)
		return nil
	}
}

// WithDefaultDirs initializes with default skill directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./skills", // Repo-local (highest precedence)
			filepath.Join(homeDir, ".acst", "skills"), // User-global
		}

		d.packDirs = []packDirConfig{}
		d.addPackDirs(filepath.Join(homeDir, ".acst", "packs"))

		return nil
	}
}

// expandDirPatterns resolves doublestar patterns to existing directories.
// Literal paths pass through untouched so missing directories stay silent
// at discovery time.
func expandDirPatterns(patterns []string) []string {
	var dirs []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			dirs = append(dirs, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			continue
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err == nil && info.IsDir() {
				dirs = append(dirs, match)
			}
		}
	}
	return dirs
}

// addPackDirs scans a packs directory and registers every pack's skills
// directory. Supports nested org/repo structure.
func (d *Discovery) addPackDirs(packsDir string) {
	_ = filepath.Walk(packsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}

		skillsDir := filepath.Join(path, "skills")
		if _, err := os.Stat(skillsDir); err != nil {
			return nil
		}

		relPath, err := filepath.Rel(packsDir, path)
		if err != nil {
			return nil
		}

		packName := filepath.ToSlash(relPath)
		d.packDirs = append(d.packDirs, packDirConfig{
			dir:    skillsDir,
			prefix: packName + "/",
		})

		return filepath.SkipDir
	})
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// Dirs returns the skill directories being searched, in precedence order.
func (d *Discovery) Dirs() []string {
	dirs := make([]string, 0, len(d.skillDirs)+len(d.packDirs))
	dirs = append(dirs, d.skillDirs...)
	for _, pack := range d.packDirs {
		dirs = append(dirs, pack.dir)
	}
	return dirs
}

// DiscoverSkills finds all available skills from configured directories.
// Earlier directories win on name collisions.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	found := make(map[string]*Skill)

	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(dir, "", found)
	}

	for _, pack := range d.packDirs {
		d.discoverSkillsFromDir(pack.dir, pack.prefix, found)
	}

	return found, nil
}

// discoverSkillsFromDir walks a directory tree registering every directory
// that holds a SKILL.md. Layer subdirectories may nest arbitrarily.
func (d *Discovery) discoverSkillsFromDir(dir, prefix string, found map[string]*Skill) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}

		skillPath := filepath.Join(path, skillFileName)
		if _, err := os.Stat(skillPath); err != nil {
			return nil
		}

		skill, err := LoadSkill(skillPath)
		if err != nil {
			return filepath.SkipDir
		}

		skillName := prefix + skill.Name
		if _, exists := found[skillName]; !exists {
			skill.Name = skillName
			found[skillName] = skill
		}

		return filepath.SkipDir
	})
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	found, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	skill, exists := found[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}

	return skill, nil
}

// ListSkillNames returns the names of all available skills
func (d *Discovery) ListSkillNames() ([]string, error) {
	found, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}

	return names, nil
}

// LoadSkill loads a single skill from its SKILL.md file. The document must
// parse as markdown with YAML frontmatter carrying at least name and
// description; unknown frontmatter keys are rejected.
func LoadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	if meta.Get(pctx) == nil {
		return nil, errors.New("missing frontmatter")
	}

	frontmatter, body := splitFrontmatter(string(content))

	var metadata Metadata
	dec := yaml.NewDecoder(strings.NewReader(frontmatter))
	dec.KnownFields(true)
	if err := dec.Decode(&metadata); err != nil {
		return nil, errors.Wrap(err, "invalid frontmatter")
	}

	if metadata.Name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if metadata.Description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	return &Skill{
		Metadata:  metadata,
		Directory: filepath.Dir(path),
		Content:   body,
	}, nil
}

// splitFrontmatter separates the YAML frontmatter block from the markdown
// body. Returns an empty frontmatter when the document has none.
func splitFrontmatter(content string) (frontmatter, body string) {
	if !strings.HasPrefix(content, "---") {
		return "", content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return "", content
	}

	frontmatter = strings.Join(lines[1:frontmatterEnd], "\n")
	body = strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
	return frontmatter, body
}

// FilterByAllowlist filters skills by an allowlist of names.
// If the allowlist is empty, all skills are returned.
func FilterByAllowlist(all map[string]*Skill, allowed []string) map[string]*Skill {
	if len(allowed) == 0 {
		return all
	}

	filtered := make(map[string]*Skill)
	for _, name := range allowed {
		if skill, exists := all[name]; exists {
			filtered[name] = skill
		}
	}
	return filtered
}
