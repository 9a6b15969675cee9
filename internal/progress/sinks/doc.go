// Package sinks provides progress.Sink implementations: structured logging
// and Prometheus export.
package sinks
