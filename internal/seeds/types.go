package seeds

import (
	"context"
	"errors"
)

var ErrUnknownAction = errors.New("unknown seed action")

// SeedMetadata is the contract for seed identity and display data.
type SeedMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SeedResult is the execution result shape shared by all seeds.
// Report carries the seed-specific structured document.
type SeedResult struct {
	Status   string `json:"status"`
	Stdout   []byte `json:"-"`
	Stderr   []byte `json:"-"`
	ExitCode int32  `json:"exit_code"`
	Report   any    `json:"report,omitempty"`
}

// OperationSpec defines one supported seed action.
type OperationSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Idempotent  bool   `json:"idempotent"`
}

// Seed is the execution boundary used by the agent and the CLI.
type Seed interface {
	Metadata() SeedMetadata
	Operations() []OperationSpec
	Execute(ctx context.Context, action string, args map[string]string) (SeedResult, error)
}

// HasOperation reports whether seed lists action in its catalog.
func HasOperation(seed Seed, action string) bool {
	for _, op := range seed.Operations() {
		if op.Name == action {
			return true
		}
	}
	return false
}
