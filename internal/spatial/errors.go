package spatial

import (
	"sync"

	"cullengine/internal/config"

	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	ErrTypeEmptyLeaf       = "spatial_empty_leaf"
	ErrTypeRemoveFailed    = "spatial_remove_failed"
	ErrTypeElementNotFound = "spatial_element_not_found"
	ErrTypeAlreadyGrouped  = "spatial_already_grouped"
	ErrTypeDeadEntry       = "spatial_dead_entry"
	ErrTypeNotGrouped      = "spatial_not_grouped"
	ErrTypeBoundEscape     = "spatial_bound_escape"
	ErrTypeEmptyExtents    = "spatial_empty_extents"
)

var (
	reporterMu sync.Mutex
	reporter   = defaultReporter
)

// ReportInvariant records that the tree and the entry bookkeeping diverged.
// The error is counted by type, then handed to the current reporter.
func ReportInvariant(err error) {
	if err == nil {
		return
	}
	instrumentInvariant(err)

	reporterMu.Lock()
	r := reporter
	reporterMu.Unlock()
	r(err)
}

// SetInvariantReporter replaces the reporter used by ReportInvariant and
// returns the previous one. A nil reporter restores the default, which logs
// the error and exits when config.GetFatalOnInvariantViolation is set.
func SetInvariantReporter(r func(error)) func(error) {
	if r == nil {
		r = defaultReporter
	}
	reporterMu.Lock()
	defer reporterMu.Unlock()
	prev := reporter
	reporter = r
	return prev
}

func defaultReporter(err error) {
	if config.GetFatalOnInvariantViolation() {
		logs.Fatal(err)
	}
	logs.Error(err)
}
