// Package prometheus exports jobAuth engine metrics through a
// client_golang collector. Register it on your own registry or use
// [Handler] for a standalone /metrics endpoint.
package prometheus
