// Package output renders experiment results: console progress and reports,
// JSON and YAML documents, a standalone HTML report and an append-only
// history file.
package output
