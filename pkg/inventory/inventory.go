// Package inventory maps a package name and version back to the canonical
// build identifier recorded in an externally generated listing.
//
// The listing is plain text, one <identifier>-<version> token per line, as
// printed by `nix-env -qa`. It is loaded once and shared read-only across
// every concurrent lookup.
package inventory

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Listing is an immutable, in-memory inventory of built package identifiers.
type Listing struct {
	lines []string
}

// Parse builds a Listing from raw inventory text.
func Parse(text string) *Listing {
	return &Listing{lines: strings.Split(text, "\n")}
}

// Load reads the listing file at path.
func Load(path string) (*Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	return Parse(string(data)), nil
}

// Len returns the number of lines in the listing.
func (l *Listing) Len() int { return len(l.lines) }

// Identifier resolves the canonical build identifier for pname at version.
// It returns the first line, in file order, that contains the substring
// "{pname}-{version}" and no "python2" marker, with the trailing version
// segment stripped. When several identifiers share the same pname-version
// infix the first line wins; the listing is expected to keep that ambiguity
// rare, and no other tie-break is applied.
//
// ok is false when no line matches; the caller treats that as "nothing to
// report", not a failure.
func (l *Listing) Identifier(pname, version string) (string, bool) {
	needle := pname + "-" + version
	for _, line := range l.lines {
		if !strings.Contains(line, needle) || strings.Contains(line, "python2") {
			continue
		}
		token := strings.TrimSpace(line)
		// "azure-mgmt-storage-0.37" -> "azure-mgmt-storage"
		i := strings.LastIndex(token, "-")
		if i <= 0 {
			continue
		}
		return token[:i], true
	}
	return "", false
}

// Generate runs `nix-env -qa` and writes its output to path, creating parent
// directories as needed. nixpkgs, when non-empty, is passed as the expression
// path (`-f`). This is the one subprocess the tool runs; everything else
// reads the file it produces.
func Generate(ctx context.Context, nixpkgs, path string) error {
	args := []string{}
	if nixpkgs != "" {
		args = append(args, "-f", nixpkgs)
	}
	args = append(args, "-qa")

	cmd := exec.CommandContext(ctx, "nix-env", args...)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("nix-env -qa: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create inventory dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write inventory: %w", err)
	}
	return nil
}
