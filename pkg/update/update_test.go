package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/nixtools/pypiup/pkg/inventory"
	"github.com/nixtools/pypiup/pkg/registry"
	"github.com/nixtools/pypiup/pkg/resolve"
)

// fakeIndex serves PyPI-shaped release listings for a fixed set of packages.
func fakeIndex(t *testing.T, releases map[string][]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/json")
		versions, ok := releases[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		entries := make([]string, 0, len(versions))
		for _, v := range versions {
			entries = append(entries, fmt.Sprintf("%q: []", v))
		}
		fmt.Fprintf(w, `{"info": {"name": %q}, "releases": {%s}}`, name, strings.Join(entries, ", "))
	}))
	t.Cleanup(server.Close)
	return server
}

// writeDeclaration creates a package directory with a default.nix declaring
// pname and version, returning the directory path.
func writeDeclaration(t *testing.T, pname, version string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), pname)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	text := fmt.Sprintf("buildPythonPackage rec {\n  pname = %q;\n  version = %q;\n}\n", pname, version)
	if err := os.WriteFile(filepath.Join(dir, "default.nix"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestChecker(t *testing.T, server *httptest.Server, listing string, target resolve.Target) *Checker {
	t.Helper()
	client := registry.NewClient(server.URL, "https://pypi.org/project", nil)
	logger := log.New(io.Discard)
	return NewChecker(client, inventory.Parse(listing), target, false, 4, logger)
}

func TestProcessUpdated(t *testing.T) {
	server := fakeIndex(t, map[string][]string{
		"foo": {"1.0.0", "1.1.0", "2.0.0"},
	})
	checker := newTestChecker(t, server, "foo-1.0.0\n", resolve.TargetMinor)

	dir := writeDeclaration(t, "foo", "1.0.0")
	out := checker.Process(context.Background(), dir)

	if out.Status != StatusUpdated {
		t.Fatalf("Status = %v (err=%v), want updated", out.Status, out.Err)
	}
	want := "foo 1.0.0 1.1.0 https://pypi.org/project/foo/"
	if got := out.Update.Line(); got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestProcessOutcomes(t *testing.T) {
	server := fakeIndex(t, map[string][]string{
		"current":  {"1.0.0"},
		"newer":    {"1.0.0", "1.2.0"},
		"noident":  {"1.0.0", "1.2.0"},
		"preonly":  {"1.0.0", "2.0.0rc1"},
		"majorjmp": {"1.0.0", "2.0.0"},
	})
	listing := "current-1.0.0\nnewer-1.0.0\npython2.7-noident-1.0.0\npreonly-1.0.0\nmajorjmp-1.0.0\n"

	tests := []struct {
		name    string
		pname   string
		version string
		target  resolve.Target
		want    Status
	}{
		{"already current", "current", "1.0.0", resolve.TargetMajor, StatusNoOp},
		{"genuine update", "newer", "1.0.0", resolve.TargetMinor, StatusUpdated},
		{"no inventory identifier", "noident", "1.0.0", resolve.TargetMinor, StatusNoOp},
		{"prerelease only", "preonly", "1.0.0", resolve.TargetMajor, StatusNoOp},
		{"major bump outside minor ceiling", "majorjmp", "1.0.0", resolve.TargetMinor, StatusNoOp},
		{"major bump with major target", "majorjmp", "1.0.0", resolve.TargetMajor, StatusUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker(t, server, listing, tt.target)
			dir := writeDeclaration(t, tt.pname, tt.version)
			out := checker.Process(context.Background(), dir)
			if out.Status != tt.want {
				t.Errorf("Status = %v (reason=%q err=%v), want %v", out.Status, out.Reason, out.Err, tt.want)
			}
		})
	}
}

func TestProcessSkips(t *testing.T) {
	server := fakeIndex(t, nil)
	checker := newTestChecker(t, server, "", resolve.TargetMajor)
	ctx := context.Background()

	t.Run("missing path", func(t *testing.T) {
		out := checker.Process(ctx, filepath.Join(t.TempDir(), "nope"))
		if out.Status != StatusSkipped {
			t.Errorf("Status = %v, want skipped", out.Status)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "setup.py")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		out := checker.Process(ctx, path)
		if out.Status != StatusSkipped {
			t.Errorf("Status = %v, want skipped", out.Status)
		}
	})
}

func TestProcessFailures(t *testing.T) {
	server := fakeIndex(t, map[string][]string{"foo": {"1.0.0", "1.1.0"}})
	checker := newTestChecker(t, server, "foo-1.0.0\n", resolve.TargetMajor)
	ctx := context.Background()

	t.Run("missing pname", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "default.nix")
		if err := os.WriteFile(path, []byte(`version = "1.0.0";`), 0o644); err != nil {
			t.Fatal(err)
		}
		out := checker.Process(ctx, path)
		if out.Status != StatusFailed {
			t.Fatalf("Status = %v, want failed", out.Status)
		}
	})

	t.Run("ambiguous version", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "default.nix")
		text := "pname = \"foo\";\nversion = \"1.0.0\";\nversion = \"2.0.0\";\n"
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
		out := checker.Process(ctx, path)
		if out.Status != StatusFailed {
			t.Fatalf("Status = %v, want failed", out.Status)
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		dir := writeDeclaration(t, "ghost", "1.0.0")
		out := checker.Process(ctx, dir)
		if out.Status != StatusFailed {
			t.Fatalf("Status = %v, want failed", out.Status)
		}
		if !errors.Is(out.Err, registry.ErrNotFound) {
			t.Errorf("Err = %v, want ErrNotFound", out.Err)
		}
	})

	t.Run("unparsable declared version", func(t *testing.T) {
		dir := writeDeclaration(t, "foo", "unstable-2021-04")
		out := checker.Process(ctx, dir)
		if out.Status != StatusFailed {
			t.Fatalf("Status = %v, want failed", out.Status)
		}
	})
}

func TestProcessDowngrade(t *testing.T) {
	// Every release the index still knows is older than the declared
	// version, as when newer releases were yanked after the declaration was
	// written. That must surface as a failure, not as "already current".
	server := fakeIndex(t, map[string][]string{
		"foo": {"1.0.0", "1.9.2"},
	})
	checker := newTestChecker(t, server, "foo-2.0.0\n", resolve.TargetMajor)

	dir := writeDeclaration(t, "foo", "2.0.0")
	out := checker.Process(context.Background(), dir)

	if out.Status != StatusFailed {
		t.Fatalf("Status = %v (reason=%q err=%v), want failed", out.Status, out.Reason, out.Err)
	}
	if !errors.Is(out.Err, ErrDowngrade) {
		t.Errorf("Err = %v, want ErrDowngrade", out.Err)
	}
}

func TestRunOrderAndCounts(t *testing.T) {
	server := fakeIndex(t, map[string][]string{
		"aaa": {"1.0.0", "1.1.0"},
		"bbb": {"2.0.0"},
		"ccc": {"0.5.0", "0.6.0"},
	})
	listing := "aaa-1.0.0\nbbb-2.0.0\nccc-0.5.0\n"
	checker := newTestChecker(t, server, listing, resolve.TargetMinor)

	paths := []string{
		writeDeclaration(t, "aaa", "1.0.0"),
		writeDeclaration(t, "broken", "1.0.0"), // not in the index
		writeDeclaration(t, "bbb", "2.0.0"),
		writeDeclaration(t, "ccc", "0.5.0"),
	}

	outcomes, result := checker.Run(context.Background(), paths)

	if len(outcomes) != len(paths) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(paths))
	}
	for i, o := range outcomes {
		if o.Path != paths[i] {
			t.Errorf("outcome %d is for %q, want %q (input order must be preserved)", i, o.Path, paths[i])
		}
	}

	wantStatus := []Status{StatusUpdated, StatusFailed, StatusNoOp, StatusUpdated}
	for i, want := range wantStatus {
		if outcomes[i].Status != want {
			t.Errorf("outcome %d status = %v (err=%v), want %v", i, outcomes[i].Status, outcomes[i].Err, want)
		}
	}

	if result.Checked != 3 {
		t.Errorf("Checked = %d, want 3 (failures excluded)", result.Checked)
	}
	if result.Updated != 2 {
		t.Errorf("Updated = %d, want 2", result.Updated)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	// Every package 404s; the batch must still produce one outcome per
	// input and zero updates, without aborting.
	server := fakeIndex(t, nil)
	checker := newTestChecker(t, server, "", resolve.TargetMajor)

	paths := []string{
		writeDeclaration(t, "a", "1.0"),
		writeDeclaration(t, "b", "1.0"),
		writeDeclaration(t, "c", "1.0"),
	}

	outcomes, result := checker.Run(context.Background(), paths)
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Status != StatusFailed {
			t.Errorf("outcome %d = %v, want failed", i, o.Status)
		}
	}
	if result.Checked != 0 || result.Updated != 0 {
		t.Errorf("result = %+v, want zero counts", result)
	}
}
