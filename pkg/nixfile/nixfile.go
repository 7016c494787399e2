// Package nixfile reads package metadata out of Nix build-description files.
//
// A declaration is free text containing attribute bindings of the form
// `pname = "requests";`. The extractor enforces uniqueness: a declaration that
// binds the same attribute twice is a data error, not something to resolve by
// picking one occurrence.
package nixfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultFilename is the declaration file looked up inside a package
// directory.
const DefaultFilename = "default.nix"

var (
	// ErrMissingAttribute is returned when an attribute has no binding.
	ErrMissingAttribute = errors.New("attribute not found")

	// ErrAmbiguousAttribute is returned when an attribute is bound more than
	// once in the same declaration.
	ErrAmbiguousAttribute = errors.New("attribute defined more than once")

	// ErrNotFound is returned by Locate when no declaration file exists at
	// the path. Callers treat this as a skip, not a failure.
	ErrNotFound = errors.New("declaration file does not exist")

	// ErrWrongExtension is returned by Locate when the resolved file is not
	// a Nix expression. Callers treat this as a skip, not a failure.
	ErrWrongExtension = errors.New("not a .nix file")
)

// Locate resolves path to a concrete declaration file. A directory resolves
// to the DefaultFilename inside it. The file must exist and carry the .nix
// extension.
func Locate(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultFilename)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if !strings.HasSuffix(path, ".nix") {
		return "", fmt.Errorf("%w: %s", ErrWrongExtension, path)
	}
	return path, nil
}

// ExtractUnique scans text for bindings of attr and returns the single bound
// value. It fails with ErrMissingAttribute on zero matches and
// ErrAmbiguousAttribute on more than one.
func ExtractUnique(attr, text string) (string, error) {
	values := extractValues(attr, text)
	switch len(values) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrMissingAttribute, attr)
	case 1:
		return values[0], nil
	default:
		return "", fmt.Errorf("%w: %s (%d bindings)", ErrAmbiguousAttribute, attr, len(values))
	}
}

// extractValues returns every value bound to attr, in order of appearance.
func extractValues(attr, text string) []string {
	re := regexp.MustCompile(regexp.QuoteMeta(attr) + `\s+=\s+"(.*)";`)
	var values []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		values = append(values, m[1])
	}
	return values
}
