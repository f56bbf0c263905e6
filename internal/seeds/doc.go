// Package seeds owns the managed-application adapters exposed by the agent.
//
// Ownership boundary:
// - seed metadata and operation catalog shape
// - seed execution interface
// - local seed registry primitives
package seeds
