//go:build tools

package tools

// Mocks under pkg/*/mocks are generated with mockery (config in .mockery.yaml).
// Run: go run github.com/vektra/mockery/v2 (from the repository root).
import (
	_ "github.com/vektra/mockery/v2"
)
