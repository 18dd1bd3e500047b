// Package prometheus exposes authgate metrics as a client_golang Collector.
//
// The collector reads a snapshot on every scrape. It is never registered on the
// default registry; [Exporter.Handler] serves a private one, or callers register
// the exporter on their own.
package prometheus
