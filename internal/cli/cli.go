// Package cli implements the pypiup command-line interface.
//
// The CLI wraps the release-check pipeline in three commands:
//   - check: run the concurrent update check and print the report
//   - inventory: regenerate the build-identifier listing
//   - cache: manage the registry response cache
//
// Report lines go to stdout and nothing else does; all diagnostics flow to
// stderr through a charmbracelet/log logger carried in the context. Exit
// status reflects setup problems only; individual package failures are
// logged and the batch still succeeds.
package cli
