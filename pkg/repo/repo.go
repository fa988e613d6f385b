package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// StateDirName is the marker folder that makes a directory a repository
// root. All repository state lives under it.
const StateDirName = ".protomanage"

// LayoutVersion is written into new manifests. Bumped when the on-disk
// layout changes shape.
const LayoutVersion = "1"

// Subdirectories of the state folder.
const (
	itemsDirName    = "items"
	locksDirName    = "locks"
	backupsDirName  = "backups"
	recoveryDirName = "recovery"
)

// Manifest is the repository-identity file (repo.yml): the repository's UUID
// plus metadata about when and by what it was created.
type Manifest struct {
	UUID          string    `yaml:"uuid"`
	Created       time.Time `yaml:"created"`
	LayoutVersion string    `yaml:"layout_version"`
}

// Config is the per-repository configuration (config.yml). Zero values mean
// "unset"; the service layers tool-level defaults on top.
type Config struct {
	// Editor overrides the text editor for this repository.
	Editor string `yaml:"editor,omitempty"`

	// PrettyJSON controls whether item files are written indented.
	PrettyJSON bool `yaml:"pretty_json,omitempty"`

	// Plugins lists enabled plugin names. The core only records them; the
	// plugin layer interprets the list.
	Plugins []string `yaml:"plugins,omitempty"`
}

// Repo is an open repository: a root directory with a self-contained state
// folder underneath it. The home repository additionally carries the
// registry of other repositories, but that lives in pkg/registry.
type Repo struct {
	root     string // directory containing the state folder
	stateDir string // root/.protomanage
	manifest Manifest
	config   Config
	home     bool
}

// Open loads the repository whose state folder is at stateDir. Returns
// *NotFoundError when no repository exists there.
func Open(stateDir string) (*Repo, error) {
	info, err := os.Stat(stateDir)
	if err != nil || !info.IsDir() {
		return nil, &NotFoundError{Path: stateDir}
	}

	r := &Repo{
		root:     filepath.Dir(stateDir),
		stateDir: stateDir,
	}

	manifestPath := filepath.Join(stateDir, "repo.yml")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: stateDir}
		}
		return nil, fmt.Errorf("read repository manifest: %w", err)
	}
	if err := yaml.Unmarshal(raw, &r.manifest); err != nil {
		return nil, fmt.Errorf("parse repository manifest %s: %w", manifestPath, err)
	}

	if err := r.loadConfig(); err != nil {
		return nil, err
	}

	home, err := HomeStateDir()
	if err == nil && sameDir(stateDir, home) {
		r.home = true
	}

	return r, nil
}

func sameDir(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return aa == bb
}

func (r *Repo) loadConfig() error {
	configPath := filepath.Join(r.stateDir, "config.yml")
	raw, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // config is optional, defaults apply
		}
		return fmt.Errorf("read repository config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &r.config); err != nil {
		return fmt.Errorf("parse repository config %s: %w", configPath, err)
	}
	return nil
}

// Init creates a new repository rooted at dir and returns it open. The state
// folder, manifest, empty config, and working subdirectories are created.
// Initializing where a repository already exists is an error.
func Init(dir string) (*Repo, error) {
	stateDir := filepath.Join(dir, StateDirName)
	if _, err := os.Stat(filepath.Join(stateDir, "repo.yml")); err == nil {
		return nil, fmt.Errorf("repository already initialized at %s", dir)
	}

	for _, sub := range []string{itemsDirName, locksDirName, backupsDirName, recoveryDirName} {
		if err := os.MkdirAll(filepath.Join(stateDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create repository layout: %w", err)
		}
	}

	manifest := Manifest{
		UUID:          uuid.NewString(),
		Created:       time.Now(),
		LayoutVersion: LayoutVersion,
	}
	raw, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "repo.yml"), raw, 0644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.yml"), []byte("{}\n"), 0644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	return Open(stateDir)
}

// InitHome creates the home repository. Callers hit this on first run, when
// Find reports the home repository missing.
func InitHome() (*Repo, error) {
	home, err := HomeRoot()
	if err != nil {
		return nil, err
	}
	return Init(home)
}

// UUID returns the repository's identifier.
func (r *Repo) UUID() string { return r.manifest.UUID }

// Root returns the directory containing the state folder.
func (r *Repo) Root() string { return r.root }

// StateDir returns the path of the state folder.
func (r *Repo) StateDir() string { return r.stateDir }

// Config returns the repository configuration.
func (r *Repo) Config() Config { return r.config }

// Manifest returns the repository identity metadata.
func (r *Repo) Manifest() Manifest { return r.manifest }

// IsHome reports whether this is the home repository.
func (r *Repo) IsHome() bool { return r.home }

// ItemsDir returns the directory holding one file per item.
func (r *Repo) ItemsDir() string { return filepath.Join(r.stateDir, itemsDirName) }

// LocksDir returns the directory holding per-item checkout locks.
func (r *Repo) LocksDir() string { return filepath.Join(r.stateDir, locksDirName) }

// BackupsDir returns the directory holding in-session pre-edit snapshots.
func (r *Repo) BackupsDir() string { return filepath.Join(r.stateDir, backupsDirName) }

// RecoveryDir returns the directory failed sessions preserve snapshots in.
func (r *Repo) RecoveryDir() string { return filepath.Join(r.stateDir, recoveryDirName) }

// RegistryDBPath returns where the home repository keeps its registry of
// known repositories.
func (r *Repo) RegistryDBPath() string { return filepath.Join(r.stateDir, "registry.db") }

// IndexDBPath returns where the repository's advisory search index lives.
func (r *Repo) IndexDBPath() string { return filepath.Join(r.stateDir, "index.db") }

func (r *Repo) String() string {
	return fmt.Sprintf("Repo(path=%s, uuid=%s)", r.root, r.manifest.UUID)
}
