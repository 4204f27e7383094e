// Package client provides a typed HTTP client for the Pipesight API.
//
// It is the programmatic counterpart of the CLI subcommands: out-of-process
// workers use SubmitEvent as their ingestion boundary, and tooling uses the
// read methods instead of hand-rolling HTTP calls.
package client
