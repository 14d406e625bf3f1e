package domain

import "time"

type MetricsCollector interface {
	RecordCheck(id RecordID, result ConnectivityResult, duration time.Duration)
	RecordTargetProbe(target string, result TargetResult)
	RecordCoalescedCheck()
	RecordBatch(report BatchReport)
	SetDirectorySize(n int)
}
