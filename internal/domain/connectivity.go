package domain

import "time"

type ConnectivityStatus string

const (
	StatusConnected ConnectivityStatus = "connected"
	StatusError     ConnectivityStatus = "error"
)

// ErrorCode classifies why a probe target ended in StatusError.
type ErrorCode string

const (
	CodeCredentialParse ErrorCode = "credential_parse"
	CodeTimeout         ErrorCode = "timeout"
	CodeConnect         ErrorCode = "connect"
	CodeBadStatus       ErrorCode = "bad_status"
	CodeIPParse         ErrorCode = "ip_parse"
)

type ProbeTarget struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

type IPInfo struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
}

type TargetResult struct {
	Status    ConnectivityStatus `json:"status"`
	LatencyMs int64              `json:"latencyMs,omitempty"`
	Error     string             `json:"error,omitempty"`
	Code      ErrorCode          `json:"code,omitempty"`
}

func (r TargetResult) Connected() bool {
	return r.Status == StatusConnected
}

// ConnectivityResult holds one entry per registry target, in registry order.
type ConnectivityResult struct {
	IPInfo       *IPInfo        `json:"ipInfo,omitempty"`
	Connectivity []TargetResult `json:"connectivity"`
	CheckedAt    time.Time      `json:"checkedAt"`
}

// ConnectedCount reports how many targets answered.
func (r ConnectivityResult) ConnectedCount() int {
	n := 0
	for _, t := range r.Connectivity {
		if t.Connected() {
			n++
		}
	}
	return n
}
