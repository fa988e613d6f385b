package repo

import (
	"os"
	"path/filepath"
)

// HomeRoot returns the directory whose state folder is the home repository.
// PM_HOME overrides the user's home directory, which keeps tests and
// multi-profile setups away from the real one.
func HomeRoot() (string, error) {
	if override := os.Getenv("PM_HOME"); override != "" {
		return override, nil
	}
	return os.UserHomeDir()
}

// HomeStateDir returns the home repository's state folder path.
func HomeStateDir() (string, error) {
	root, err := HomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, StateDirName), nil
}

// Find resolves the repository governing startDir: the first ancestor
// (including startDir itself) containing a state folder, falling back to the
// home repository when the walk reaches the filesystem root.
//
// Returns *NotFoundError only when the fallback home repository itself is
// missing; first-run callers are expected to InitHome rather than have this
// layer auto-create it.
func Find(startDir string) (*Repo, error) {
	current, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		stateDir := filepath.Join(current, StateDirName)
		if info, err := os.Stat(stateDir); err == nil && info.IsDir() {
			return Open(stateDir)
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return FindHome()
}

// FindHome opens the home repository directly, regardless of working
// directory. This backs the explicit home-override flag.
func FindHome() (*Repo, error) {
	stateDir, err := HomeStateDir()
	if err != nil {
		return nil, err
	}
	return Open(stateDir)
}
