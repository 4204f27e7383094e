// Package worker simulates document and query processing workers for
// demos, load exercises, and end-to-end tests. Real workers live in the
// surrounding application; their whole contract with the monitoring core
// is the Recorder interface defined here.
package worker
