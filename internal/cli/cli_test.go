package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
)

const draftV1 = `1. Payment
The Customer shall pay fees of $200,000 within 30 days.

2. Limitation of Liability
The Supplier's liability shall not exceed the fees paid in the prior twelve months.

3. Governing Law
This Agreement is governed by the laws of the State of New York.
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"msa-v2.txt", "msa-v2"},
		{"terms of service.html", "terms-of-service"},
		{"a:b*c?.md", "a_b_c_"},
		{"", "draft"},
		{"..", "draft"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	used := make(map[string]int)

	got := []string{uniqueSlug(used, "draft"), uniqueSlug(used, "other"), uniqueSlug(used, "draft")}
	want := []string{"draft", "other", "draft-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q at %d, got %q", want[i], i, got[i])
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("Expected config to be written, got %v", err)
	}

	cfg, err := rules.LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected written config to load, got %v", err)
	}
	got, _ := rules.Fingerprint(cfg)
	want, _ := rules.Fingerprint(model.DefaultConfig())
	if got != want {
		t.Errorf("Expected fingerprint %s, got %s", want, got)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected an error when the config file already exists")
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.TrimSpace(stdout) != version {
		t.Errorf("Expected %q, got %q", version, stdout)
	}
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	before := writeFile(t, dir, "v1.txt", draftV1)
	after := writeFile(t, dir, "v2.txt", strings.Replace(draftV1, "$200,000", "$250,000", 1))
	jsonPath := filepath.Join(dir, "out.json")

	stdout, _, err := execute(t, "compare", before, after, "--json", jsonPath, "--no-color")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(stdout, "v1.txt → v2.txt") {
		t.Errorf("Expected summary header, got %q", stdout)
	}
	if _, err := os.Stat(jsonPath); err != nil {
		t.Errorf("Expected JSON report at %s: %v", jsonPath, err)
	}
}

func TestCompareCommand_MissingFile(t *testing.T) {
	dir := t.TempDir()
	before := writeFile(t, dir, "v1.txt", draftV1)

	_, _, err := execute(t, "compare", before, filepath.Join(dir, "missing.txt"))
	if err == nil {
		t.Fatal("Expected an error for a missing draft")
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "template.txt", draftV1)
	writeFile(t, dir, "acme.txt", strings.Replace(draftV1, "30 days", "45 days", 1))
	writeFile(t, dir, "globex.txt", strings.Replace(draftV1, "New York", "Delaware", 1))
	list := writeFile(t, dir, "drafts.txt", "# drafts\n"+
		filepath.Join(dir, "acme.txt")+"\n"+
		filepath.Join(dir, "globex.txt")+"\n"+
		filepath.Join(dir, "missing.txt")+"\n")
	outDir := filepath.Join(dir, "reports")

	_, stderr, err := execute(t, "batch", "--baseline", base, list, "--output-dir", outDir, "--concurrency", "2")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, name := range []string{"acme.json", "acme.md", "globex.json", "globex.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}
	if !strings.Contains(stderr, "Success:   2") || !strings.Contains(stderr, "Failures:  1") {
		t.Errorf("Expected 2 successes and 1 failure, got %q", stderr)
	}
}
