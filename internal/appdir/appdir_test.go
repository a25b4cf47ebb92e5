package appdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDir_EnvOverride(t *testing.T) {
	want := t.TempDir()
	t.Setenv(DirEnv, want)
	reset()
	t.Cleanup(reset)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if got != want {
		t.Errorf("Dir = %q, want %q", got, want)
	}
}

func TestEnsureDir_CreatesDirectory(t *testing.T) {
	base := t.TempDir()
	t.Setenv(DirEnv, filepath.Join(base, "nested", "qbconnect"))
	reset()
	t.Cleanup(reset)

	if err := EnsureDir(); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	dir, _ := Dir()
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat data dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("data dir is not a directory")
	}
}

func TestFilePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)
	reset()
	t.Cleanup(reset)

	session, err := SessionFilePath()
	if err != nil {
		t.Fatalf("SessionFilePath failed: %v", err)
	}
	if session != filepath.Join(dir, SessionFileName) {
		t.Errorf("SessionFilePath = %q", session)
	}

	logFile, err := LogFilePath()
	if err != nil {
		t.Fatalf("LogFilePath failed: %v", err)
	}
	if logFile != filepath.Join(dir, LogFileName) {
		t.Errorf("LogFilePath = %q", logFile)
	}
}
