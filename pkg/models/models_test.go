package models

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touchModels(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
}

func allModelNames() []string {
	names := make([]string, len(Required))
	for i, m := range Required {
		names[i] = m.Name
	}
	return names
}

func TestMissingEmptyDir(t *testing.T) {
	missing := Missing(t.TempDir())
	if len(missing) != len(Required) {
		t.Errorf("expected %d missing models, got %d", len(Required), len(missing))
	}
}

func TestMissingPartial(t *testing.T) {
	dir := t.TempDir()
	touchModels(t, dir, Required[0].Name)

	missing := Missing(dir)
	if len(missing) != len(Required)-1 {
		t.Fatalf("expected %d missing models, got %d", len(Required)-1, len(missing))
	}
	for _, name := range missing {
		if name == Required[0].Name {
			t.Errorf("did not expect %s in the missing list", name)
		}
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	err := Verify(dir)
	if !errors.Is(err, ErrModelsMissing) {
		t.Errorf("expected ErrModelsMissing, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "download-models") {
		t.Errorf("expected actionable message, got %q", err.Error())
	}

	touchModels(t, dir, allModelNames()...)
	if err := Verify(dir); err != nil {
		t.Errorf("expected Verify to pass, got %v", err)
	}
}

func TestDownloadSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	touchModels(t, dir, allModelNames()...)

	// All files present, nothing should be fetched.
	if err := Download(dir); err != nil {
		t.Errorf("Download failed: %v", err)
	}
}
