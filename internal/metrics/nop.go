package metrics

import (
	"time"

	"proxy-checker/internal/domain"
)

// Nop discards everything; used where no registry is wired.
type Nop struct{}

func (Nop) RecordCheck(domain.RecordID, domain.ConnectivityResult, time.Duration) {}
func (Nop) RecordTargetProbe(string, domain.TargetResult)                         {}
func (Nop) RecordCoalescedCheck()                                                 {}
func (Nop) RecordBatch(domain.BatchReport)                                        {}
func (Nop) SetDirectorySize(int)                                                  {}

var _ domain.MetricsCollector = Nop{}
var _ domain.MetricsCollector = (*Collector)(nil)
