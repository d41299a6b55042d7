package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.mjs")
	content := []byte("export default {}\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	reader := NewReader(0)
	got, err := reader.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Read = %q, want %q", got, content)
	}
}

func TestReader_MissingFile(t *testing.T) {
	reader := NewReader(0)
	_, err := reader.Read(filepath.Join(t.TempDir(), "nope.mjs"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Errorf("expected *DiscoveryError, got %T", err)
	}
}

func TestReader_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.mjs")
	if err := os.WriteFile(path, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}

	reader := NewReader(64)
	_, err := reader.Read(path)
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected *DiscoveryError, got %T", err)
	}
}

func TestReader_Directory(t *testing.T) {
	reader := NewReader(0)
	if _, err := reader.Read(t.TempDir()); err == nil {
		t.Fatal("expected error when reading a directory")
	}
}

func TestReader_DefaultCeiling(t *testing.T) {
	if NewReader(-1).MaxBytes() != DefaultMaxFileSize {
		t.Error("negative ceiling should fall back to the default")
	}
	if NewReader(1024).MaxBytes() != 1024 {
		t.Error("explicit ceiling should be kept")
	}
}
