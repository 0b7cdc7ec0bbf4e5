package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "crafthub"

// Defaults for the manifest rewrite. The template ships a Cargo.toml whose
// package name is the placeholder below.
const (
	DefaultManifestFile        = "Cargo.toml"
	DefaultManifestPlaceholder = `name = "fantasy-craft-default-template"`
	DefaultManifestReplacement = `name = "%s"`
)

type Config struct {
	Theme           string            `yaml:"theme"`
	LogLevel        string            `yaml:"log_level"`
	GitBinary       string            `yaml:"git_binary"`
	CloneTimeout    Duration          `yaml:"clone_timeout"`
	ProjectsDir     string            `yaml:"projects_dir"`
	DefaultTemplate string            `yaml:"default_template"`
	Templates       map[string]string `yaml:"templates"`
	Manifest        ManifestConfig    `yaml:"manifest"`
	Editors         EditorsConfig     `yaml:"editors"`
	DefaultEditor   string            `yaml:"default_editor"` // slug or executable path
	Web             WebConfig         `yaml:"web"`
}

type ManifestConfig struct {
	File        string `yaml:"file"`
	Placeholder string `yaml:"placeholder"`
	Replacement string `yaml:"replacement"` // must contain one %s
}

// EditorsConfig customizes the editor candidate table. Candidates are
// appended to the built-in table unless ReplaceDefaults is set.
type EditorsConfig struct {
	ReplaceDefaults bool              `yaml:"replace_defaults"`
	Candidates      []EditorCandidate `yaml:"candidates"`
}

type EditorCandidate struct {
	Slug         string   `yaml:"slug"`
	DisplayName  string   `yaml:"display_name"`
	Executables  []string `yaml:"executables"`
	FallbackDirs []string `yaml:"fallback_dirs"`
}

type WebConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Duration is a time.Duration that unmarshals from strings like "90s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" || s == "0" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// LookPathFunc is the function signature for looking up executables.
type LookPathFunc func(name string) (string, error)

func DefaultConfig() Config {
	return Config{
		Theme:       "mocha",
		LogLevel:    "info",
		GitBinary:   "git",
		ProjectsDir: "~/Projects",
		Templates:   map[string]string{},
		Manifest: ManifestConfig{
			File:        DefaultManifestFile,
			Placeholder: DefaultManifestPlaceholder,
			Replacement: DefaultManifestReplacement,
		},
		Web: WebConfig{Bind: "127.0.0.1"},
	}
}

// Load reads config.yaml from the default config directory.
func Load() (Config, error) {
	return LoadFrom(filepath.Join(Dir(""), "config.yaml"))
}

// LoadFromDir reads config.yaml from dir.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

// LoadFrom reads the file at configPath. A missing file yields defaults.
// Keys absent from the file keep their default values.
func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", configPath, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", configPath, err)
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.GitBinary == "" {
		c.GitBinary = d.GitBinary
	}
	if c.Templates == nil {
		c.Templates = map[string]string{}
	}
	if c.Manifest.File == "" {
		c.Manifest.File = d.Manifest.File
	}
	if c.Manifest.Placeholder == "" {
		c.Manifest.Placeholder = d.Manifest.Placeholder
	}
	if c.Manifest.Replacement == "" {
		c.Manifest.Replacement = d.Manifest.Replacement
	}
	if c.Web.Bind == "" {
		c.Web.Bind = d.Web.Bind
	}
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if strings.Count(c.Manifest.Replacement, "%s") != 1 {
		return fmt.Errorf("manifest.replacement must contain exactly one %%s, got %q", c.Manifest.Replacement)
	}
	if strings.ContainsAny(c.Manifest.File, `/\`) {
		return fmt.Errorf("manifest.file must be a file name, got %q", c.Manifest.File)
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	if c.CloneTimeout < 0 {
		return fmt.Errorf("clone_timeout must not be negative")
	}
	for i, e := range c.Editors.Candidates {
		if e.Slug == "" || len(e.Executables) == 0 {
			return fmt.Errorf("editors.candidates[%d]: slug and executables are required", i)
		}
	}
	if c.DefaultTemplate != "" && !IsTemplateURL(c.DefaultTemplate) {
		if _, ok := c.Templates[c.DefaultTemplate]; !ok {
			return fmt.Errorf("default_template %q is not defined in templates", c.DefaultTemplate)
		}
	}
	return nil
}

// ResolveTemplate turns a template name or URL into a clone URL. An empty
// ref resolves the default template.
func (c *Config) ResolveTemplate(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = c.DefaultTemplate
	}
	if ref == "" {
		return "", fmt.Errorf("no template given and no default_template configured")
	}
	if url, ok := c.Templates[ref]; ok {
		return url, nil
	}
	if IsTemplateURL(ref) {
		return ExpandHome(ref), nil
	}
	return "", fmt.Errorf("unknown template %q", ref)
}

// IsTemplateURL reports whether ref looks like something git can clone
// rather than a template name: a URL with a scheme, an scp-style
// [user@]host:path remote (a colon before any slash), or a filesystem path.
// A bare word is a template name; a directory in the working directory is
// written ./name.
func IsTemplateURL(ref string) bool {
	if ref == "" {
		return false
	}
	if strings.Contains(ref, "://") || filepath.IsAbs(ref) {
		return true
	}
	if colon := strings.IndexByte(ref, ':'); colon > 0 {
		slash := strings.IndexAny(ref, `/\`)
		if slash < 0 || colon < slash {
			return true
		}
	}
	return strings.ContainsAny(ref, `/\`) || ref == "." || ref == ".." || ref == "~"
}

// TemplateNames returns configured template names sorted, default first.
func (c *Config) TemplateNames() []string {
	names := make([]string, 0, len(c.Templates))
	for name := range c.Templates {
		if name != c.DefaultTemplate {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := c.Templates[c.DefaultTemplate]; ok {
		names = append([]string{c.DefaultTemplate}, names...)
	}
	return names
}

// ResolveProjectsDir expands ~ in ProjectsDir.
func (c *Config) ResolveProjectsDir() string {
	return ExpandHome(c.ProjectsDir)
}

// GitPath returns the resolved git binary using exec.LookPath.
func (c *Config) GitPath() (string, error) {
	return c.GitPathWith(exec.LookPath)
}

// GitPathWith resolves the configured git binary with the given lookup.
func (c *Config) GitPathWith(lookPath LookPathFunc) (string, error) {
	bin := c.GitBinary
	if bin == "" {
		bin = "git"
	}
	return lookPath(bin)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Dir returns the config directory: configDir when given, else
// $XDG_CONFIG_HOME/crafthub, else ~/.config/crafthub.
func Dir(configDir string) string {
	if configDir != "" {
		return configDir
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}
