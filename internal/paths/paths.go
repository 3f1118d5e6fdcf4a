package paths

import (
	"os"
	"path/filepath"
)

type Paths struct {
	ConfigDir string
	StateDir  string
}

// GetPaths returns all base paths respecting environment variables
func GetPaths() Paths {
	return Paths{
		ConfigDir: getDir("SRAFETCH_CONFIG_HOME", "XDG_CONFIG_HOME", ".config", "srafetch"),
		StateDir:  getDir("SRAFETCH_STATE_HOME", "XDG_STATE_HOME", ".local/state", "srafetch"),
	}
}

func getDir(appEnv, xdgEnv, defaultBase, appName string) string {
	// 1. Check srafetch-specific env
	if dir := os.Getenv(appEnv); dir != "" {
		return dir
	}

	// 2. Check XDG env
	if xdgBase := os.Getenv(xdgEnv); xdgBase != "" {
		return filepath.Join(xdgBase, appName)
	}

	// 3. Use default
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// GetConfigFile returns the default config file location
func GetConfigFile() string {
	return filepath.Join(GetPaths().ConfigDir, "config.yaml")
}

// GetJournalPath returns the default journal database location
func GetJournalPath() string {
	if path := os.Getenv("SRAFETCH_JOURNAL_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().StateDir, "journal.db")
}
