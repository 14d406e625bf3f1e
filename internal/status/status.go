// Package status derives the per-target display state of a proxy record.
package status

import "proxy-checker/internal/domain"

type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Failure Status = "failure"
)

// For reports the status of one probe target for a record. A record that is
// being checked, or has no result for the target yet, is Pending.
func For(rec domain.ProxyRecord, targetIndex int) Status {
	return Of(rec.Checking, rec.CheckResult, targetIndex)
}

// Of is For without a stored record, for results that were never persisted.
func Of(checking bool, result *domain.ConnectivityResult, targetIndex int) Status {
	if checking {
		return Pending
	}
	if result == nil || targetIndex < 0 || targetIndex >= len(result.Connectivity) {
		return Pending
	}
	if result.Connectivity[targetIndex].Status == domain.StatusConnected {
		return Success
	}
	return Failure
}

// All returns the status of each of n targets.
func All(rec domain.ProxyRecord, n int) []Status {
	out := make([]Status, n)
	for i := range out {
		out[i] = For(rec, i)
	}
	return out
}
