package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dois.txt")
	content := "10.1000/a\n\n# comment\n  10.1000/b  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readLines(path)
	if err != nil {
		t.Fatalf("readLines failed: %v", err)
	}
	want := []string{"10.1000/a", "10.1000/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if _, err := readLines(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}
