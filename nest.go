// Package nest holds the release version of the nest code generator.
package nest

// Version is the current release, reported by `nest --version` and /health.
const Version = "0.3.0"
