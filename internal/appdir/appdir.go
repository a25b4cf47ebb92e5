// Package appdir provides platform-native directory management for
// qbconnect. The data directory stores the persisted session
// (session.json) and the default log file.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// DirEnv is the environment variable that overrides the data
	// directory.
	DirEnv = "QBCONNECT_DIR"

	// SessionFileName is the name of the persisted session file.
	SessionFileName = "session.json"

	// LogFileName is the name of the default log file.
	LogFileName = "qbconnect.log"
)

var (
	cachedDir string
	mu        sync.Mutex
)

// Dir returns the qbconnect data directory path without creating it:
//  1. QBCONNECT_DIR environment variable (if set)
//  2. Platform default:
//     - macOS: ~/Library/Application Support/QBConnect
//     - Linux: $XDG_DATA_HOME/qbconnect or ~/.local/share/qbconnect
//     - Windows: %APPDATA%\QBConnect
func Dir() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if cachedDir != "" {
		return cachedDir, nil
	}

	dir, err := resolveDir()
	if err != nil {
		return "", err
	}
	cachedDir = dir
	return dir, nil
}

func resolveDir() (string, error) {
	if envDir := os.Getenv(DirEnv); envDir != "" {
		return envDir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "QBConnect"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory: %w", err)
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "QBConnect"), nil
	default:
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "qbconnect"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, ".local", "share", "qbconnect"), nil
	}
}

// EnsureDir creates the data directory if it does not exist.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}

// SessionFilePath returns the path of the persisted session file.
func SessionFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SessionFileName), nil
}

// LogFilePath returns the path of the default log file.
func LogFilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogFileName), nil
}

// reset clears the cached directory. Used by tests that change DirEnv.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	cachedDir = ""
}
