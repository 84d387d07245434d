package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeUnitsReplaceInPlace(t *testing.T) {
	base := &Config{Version: 1, Units: []Unit{
		{ID: "a", Repo: "https://example.com/a.git"},
		{ID: "b", Repo: "https://example.com/b.git"},
	}}
	overlay := &Config{Units: []Unit{
		{ID: "a", Repo: "https://mirror.example.com/a.git", Ref: "v2"},
		{ID: "c", Dir: "c"},
	}}

	got, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	want := []Unit{
		{ID: "a", Repo: "https://mirror.example.com/a.git", Ref: "v2"},
		{ID: "b", Repo: "https://example.com/b.git"},
		{ID: "c", Dir: "c"},
	}
	if diff := cmp.Diff(want, got.Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
	if got.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Version)
	}
}

func TestMergeScalars(t *testing.T) {
	base := &Config{Version: 1, WorkDir: ".dump", Manifest: "requirements.txt", Platforms: []string{"windows"}}
	overlay := &Config{Version: 1, Platforms: []string{"linux"}, Roots: []string{"a"}}

	got, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if got.WorkDir != ".dump" {
		t.Errorf("WorkDir = %q, want %q", got.WorkDir, ".dump")
	}
	if got.Manifest != "requirements.txt" {
		t.Errorf("Manifest = %q, want %q", got.Manifest, "requirements.txt")
	}
	if diff := cmp.Diff([]string{"linux"}, got.Platforms); diff != "" {
		t.Errorf("Platforms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, got.Roots); diff != "" {
		t.Errorf("Roots mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeAliasesByName(t *testing.T) {
	base := &Config{PlatformAliases: []PlatformAlias{{Name: "wsl", GOOS: "linux"}, {Name: "mac", GOOS: "darwin"}}}
	overlay := &Config{PlatformAliases: []PlatformAlias{{Name: "wsl", GOOS: "windows"}}}

	got, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	want := []PlatformAlias{{Name: "mac", GOOS: "darwin"}, {Name: "wsl", GOOS: "windows"}}
	if diff := cmp.Diff(want, got.PlatformAliases); diff != "" {
		t.Errorf("PlatformAliases mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeVersionMismatch(t *testing.T) {
	_, err := Merge(&Config{Version: 1}, &Config{Version: 2})
	if err == nil {
		t.Fatal("expected error for version mismatch")
	}
	if !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("error = %q, want it to mention version mismatch", err)
	}
}

func TestMergeNil(t *testing.T) {
	c := &Config{Version: 1}

	got, err := Merge(nil, c)
	if err != nil || got != c {
		t.Errorf("Merge(nil, c) = %p, %v; want c, nil", got, err)
	}
	got, err = Merge(c, nil)
	if err != nil || got != c {
		t.Errorf("Merge(c, nil) = %p, %v; want c, nil", got, err)
	}
}

func TestMergeAll(t *testing.T) {
	if _, err := MergeAll(nil); err == nil {
		t.Error("expected error merging no configs")
	}

	got, err := MergeAll([]*Config{
		{Version: 1, WorkDir: "one"},
		{WorkDir: "two"},
		{Manifest: "req.txt"},
	})
	if err != nil {
		t.Fatalf("MergeAll() error: %v", err)
	}
	if got.WorkDir != "two" {
		t.Errorf("WorkDir = %q, want %q", got.WorkDir, "two")
	}
	if got.Manifest != "req.txt" {
		t.Errorf("Manifest = %q, want %q", got.Manifest, "req.txt")
	}
}
