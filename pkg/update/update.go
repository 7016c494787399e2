// Package update drives the per-package release check end to end: locate the
// declaration file, extract its metadata, ask the registry for known
// versions, resolve the best candidate under the semver ceiling, and map the
// result back to a canonical build identifier.
//
// Every package is independent. A batch fans the checks out across a bounded
// worker pool and collects outcomes in input order; one package failing never
// aborts or delays the others.
package update

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/nixtools/pypiup/pkg/inventory"
	"github.com/nixtools/pypiup/pkg/nixfile"
	"github.com/nixtools/pypiup/pkg/pepver"
	"github.com/nixtools/pypiup/pkg/registry"
	"github.com/nixtools/pypiup/pkg/resolve"
)

// ErrDowngrade is returned when the best version the registry knows is older
// than the declared one, which happens when every newer release has been
// yanked from the index. It is reported as a failure, never silently
// accepted.
var ErrDowngrade = errors.New("resolved version is older than declared")

// Status classifies the outcome of checking one package.
type Status int

const (
	// StatusNoOp means the package is already current or has no
	// identifier in the inventory; nothing to report.
	StatusNoOp Status = iota

	// StatusUpdated means a genuine update was found and reported.
	StatusUpdated

	// StatusSkipped means the path did not resolve to a declaration file.
	StatusSkipped

	// StatusFailed means extraction, fetching, or resolution failed.
	StatusFailed
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusNoOp:
		return "no-op"
	case StatusUpdated:
		return "updated"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ResolvedUpdate is the unit emitted to the report: one package with a
// genuine newer version.
type ResolvedUpdate struct {
	Identifier string
	OldVersion string
	NewVersion string
	ProjectURL string
}

// Line renders the report form: space-separated, no framing.
func (u ResolvedUpdate) Line() string {
	return fmt.Sprintf("%s %s %s %s", u.Identifier, u.OldVersion, u.NewVersion, u.ProjectURL)
}

// Outcome is the result of checking one package path.
type Outcome struct {
	Path   string
	Status Status
	Update *ResolvedUpdate // set only for StatusUpdated
	Reason string          // set for StatusSkipped and StatusNoOp
	Err    error           // set only for StatusFailed
}

// BatchResult aggregates one run. Checked counts packages that completed
// without failing; Updated counts report lines.
type BatchResult struct {
	Checked int
	Updated int
}

// Checker runs release checks against one registry and one inventory
// listing. It is safe for concurrent use; the listing is read-only.
type Checker struct {
	client      *registry.Client
	listing     *inventory.Listing
	target      resolve.Target
	prereleases bool
	workers     int
	logger      *log.Logger
}

// NewChecker wires a checker. workers bounds batch concurrency and must be
// at least 1. A nil logger falls back to log.Default().
func NewChecker(client *registry.Client, listing *inventory.Listing, target resolve.Target, prereleases bool, workers int, logger *log.Logger) *Checker {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{
		client:      client,
		listing:     listing,
		target:      target,
		prereleases: prereleases,
		workers:     workers,
		logger:      logger,
	}
}

// Process checks a single package path. Every step is a possible early exit;
// failures are captured in the outcome, never returned.
func (c *Checker) Process(ctx context.Context, path string) Outcome {
	file, err := nixfile.Locate(path)
	switch {
	case errors.Is(err, nixfile.ErrNotFound):
		return Outcome{Path: path, Status: StatusSkipped, Reason: "does not exist"}
	case errors.Is(err, nixfile.ErrWrongExtension):
		return Outcome{Path: path, Status: StatusSkipped, Reason: "not a .nix file"}
	case err != nil:
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}
	text := string(data)

	pname, err := nixfile.ExtractUnique("pname", text)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}
	rawVersion, err := nixfile.ExtractUnique("version", text)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}

	declared, err := pepver.Parse(rawVersion)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Err: fmt.Errorf("%s: %w", pname, err)}
	}

	rel, err := c.client.FetchReleases(ctx, pname)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}

	resolved, err := resolve.Resolve(declared, c.target, rel.Versions, c.prereleases)
	if errors.Is(err, resolve.ErrNoEligibleVersion) {
		return Outcome{Path: path, Status: StatusNoOp, Reason: "already at latest version for " + pname}
	}
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Err: err}
	}

	// The resolver never returns the declared version itself, but it does
	// return an older one when the index has dropped every newer release.
	switch cmp := resolved.Compare(declared); {
	case cmp == 0:
		return Outcome{Path: path, Status: StatusNoOp, Reason: "already at latest version for " + pname}
	case cmp < 0:
		return Outcome{Path: path, Status: StatusFailed, Err: fmt.Errorf("%w: %s %s -> %s", ErrDowngrade, pname, declared.Raw, resolved.Raw)}
	}

	identifier, ok := c.listing.Identifier(pname, declared.Raw)
	if !ok {
		return Outcome{Path: path, Status: StatusNoOp, Reason: "no inventory identifier for " + pname}
	}

	return Outcome{
		Path:   path,
		Status: StatusUpdated,
		Update: &ResolvedUpdate{
			Identifier: identifier,
			OldVersion: declared.Raw,
			NewVersion: resolved.Raw,
			ProjectURL: c.client.ProjectURL(pname),
		},
	}
}

// Run checks every path concurrently and returns one outcome per path, in
// input order regardless of completion order. Failures are logged at warning
// level and isolated to their own slot.
func (c *Checker) Run(ctx context.Context, paths []string) ([]Outcome, BatchResult) {
	outcomes := make([]Outcome, len(paths))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			outcomes[i] = c.Process(ctx, path)
			return nil
		})
	}
	// Workers never return errors; failures live in their outcome slot.
	_ = g.Wait()

	var result BatchResult
	for _, o := range outcomes {
		switch o.Status {
		case StatusFailed:
			c.logger.Warn("check failed", "path", o.Path, "err", o.Err)
		case StatusSkipped:
			c.logger.Info("skipped", "path", o.Path, "reason", o.Reason)
			result.Checked++
		case StatusNoOp:
			c.logger.Info(o.Reason, "path", o.Path)
			result.Checked++
		case StatusUpdated:
			result.Checked++
			result.Updated++
		}
	}
	return outcomes, result
}
