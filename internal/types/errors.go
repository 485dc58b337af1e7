package types

import (
	"fmt"
	"time"
)

// NoCandidateError is fatal for a request: even after relaxing every hard
// constraint no candidate remained (registry empty, everything disabled).
type NoCandidateError struct {
	Reason string
}

func (e *NoCandidateError) Error() string {
	return fmt.Sprintf("no routable candidate: %s", e.Reason)
}

// RegistryLoadError rejects a registry reload. The previous snapshot keeps
// serving; only the reload operation fails.
type RegistryLoadError struct {
	Path string
	Err  error
}

func (e *RegistryLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("registry load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("registry load: %v", e.Err)
}

func (e *RegistryLoadError) Unwrap() error { return e.Err }

// BudgetExceededError terminates a single in-flight request when its
// wall-clock budget elapses mid-chain. The partial attempt log is preserved
// on the accompanying ExecutionResult.
type BudgetExceededError struct {
	Budget  time.Duration
	Elapsed time.Duration
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("request budget %s exceeded after %s", e.Budget, e.Elapsed)
}
