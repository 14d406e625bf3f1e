package domain

import (
	"time"
)

type RecordID int64

type ProxyType string

const (
	ProxyTypeSocks5 ProxyType = "socks5"
	ProxyTypeHTTP   ProxyType = "http"
)

func (t ProxyType) Valid() bool {
	switch t {
	case ProxyTypeSocks5, ProxyTypeHTTP:
		return true
	default:
		return false
	}
}

// IPChecker names the geo-lookup source whose response format the primary
// probe target is decoded with.
type IPChecker string

const (
	IPCheckerIP2Location IPChecker = "ip2location"
	IPCheckerGeoIP       IPChecker = "geoip"
)

func (c IPChecker) Valid() bool {
	switch c {
	case IPCheckerIP2Location, IPCheckerGeoIP:
		return true
	default:
		return false
	}
}

type ProxyRecord struct {
	ID          RecordID            `json:"id"`
	ProxyType   ProxyType           `json:"proxy_type" validate:"proxyType"`
	Endpoint    string              `json:"proxy" validate:"required"`
	IPChecker   IPChecker           `json:"ip_checker" validate:"ipChecker"`
	IP          string              `json:"ip,omitempty"`
	IPCountry   string              `json:"ip_country,omitempty"`
	Remark      string              `json:"remark,omitempty"`
	Checking    bool                `json:"checking"`
	CheckResult *ConnectivityResult `json:"check_result,omitempty"`
}

func (r ProxyRecord) ProbeRequest() ProbeRequest {
	return ProbeRequest{
		ProxyType: r.ProxyType,
		Endpoint:  r.Endpoint,
		IPChecker: r.IPChecker,
	}
}

func (r ProxyRecord) ExportRow() ExportRow {
	return ExportRow{
		ID:        r.ID,
		Endpoint:  r.Endpoint,
		ProxyType: r.ProxyType,
		IP:        r.IP,
		Remark:    r.Remark,
		IPChecker: r.IPChecker,
	}
}

// RecordFields is a partial update. Nil fields are left untouched.
type RecordFields struct {
	ProxyType   *ProxyType          `json:"proxy_type,omitempty" validate:"omitempty,proxyType"`
	Endpoint    *string             `json:"proxy,omitempty"`
	IPChecker   *IPChecker          `json:"ip_checker,omitempty" validate:"omitempty,ipChecker"`
	IP          *string             `json:"ip,omitempty"`
	IPCountry   *string             `json:"ip_country,omitempty"`
	Remark      *string             `json:"remark,omitempty"`
	CheckResult *ConnectivityResult `json:"check_result,omitempty" validate:"-"`
}

type ProbeRequest struct {
	ProxyType ProxyType `json:"proxy_type" validate:"proxyType"`
	Endpoint  string    `json:"proxy" validate:"required"`
	IPChecker IPChecker `json:"ip_checker" validate:"omitempty,ipChecker"`
}

type DeleteResult struct {
	Success   bool       `json:"success"`
	FailedIDs []RecordID `json:"failedIds,omitempty"`
}

type ExportRow struct {
	ID        RecordID  `json:"id"`
	Endpoint  string    `json:"proxy"`
	ProxyType ProxyType `json:"proxy_type"`
	IP        string    `json:"ip"`
	Remark    string    `json:"remark"`
	IPChecker IPChecker `json:"ip_checker"`
}

type RecordError struct {
	ID  RecordID
	Err error
}

type BatchReport struct {
	BatchID   string
	Checked   []RecordID
	Failed    []RecordError
	Skipped   []RecordID
	Cancelled bool
	Duration  time.Duration
}
