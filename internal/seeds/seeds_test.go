package seeds

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadLinesSkipsCommentsAndBlanks(t *testing.T) {
	path := writeTempFile(t, "# comment\n\nhttp://example.com/\n  \nhttp://example.org/\n")
	got, err := LoadLines(path)
	if err != nil {
		t.Fatalf("LoadLines() error = %v", err)
	}
	want := []string{"http://example.com/", "http://example.org/"}
	if len(got) != len(want) {
		t.Fatalf("LoadLines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LoadLines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadExclusionDomainsLowercases(t *testing.T) {
	path := writeTempFile(t, "Example.COM\nFoo.Bar\n")
	got, err := LoadExclusionDomains(path)
	if err != nil {
		t.Fatalf("LoadExclusionDomains() error = %v", err)
	}
	want := []string{"example.com", "foo.bar"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LoadExclusionDomains()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
