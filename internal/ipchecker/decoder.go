package ipchecker

import (
	"encoding/json"
	"fmt"
	"strings"

	"proxy-checker/internal/domain"
)

// geoResponse covers the field names used by the supported lookup services:
// ip2location.io ({ip, country_code, country_name}), ipinfo/geojs style
// ({ip, country}) and ip-api ({query, country, countryCode}).
type geoResponse struct {
	IP          string `json:"ip"`
	Query       string `json:"query"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	CountryAlt  string `json:"countryCode"`
}

// Decode extracts the egress IP and country from a primary target body,
// preferring the country field the given checker is known to return.
func Decode(checker domain.IPChecker, body []byte) (*domain.IPInfo, error) {
	var resp geoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode ip response: %w", err)
	}

	ip := strings.TrimSpace(firstNonEmpty(resp.IP, resp.Query))
	if ip == "" {
		return nil, fmt.Errorf("ip response has no ip field")
	}

	var country string
	switch checker {
	case domain.IPCheckerIP2Location:
		country = firstNonEmpty(resp.CountryCode, resp.CountryAlt, resp.Country, resp.CountryName)
	default:
		country = firstNonEmpty(resp.Country, resp.CountryCode, resp.CountryAlt, resp.CountryName)
	}

	return &domain.IPInfo{
		IP:      ip,
		Country: strings.TrimSpace(country),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
