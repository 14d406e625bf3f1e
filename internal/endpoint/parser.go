package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"proxy-checker/internal/domain"
)

// Endpoint is a parsed "host:port[:username:password]" proxy credential.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
}

func Parse(raw string) (*Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("endpoint is empty")
	}

	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2, 4:
	default:
		return nil, fmt.Errorf("invalid endpoint format %q: expected host:port[:username:password]", raw)
	}

	host := strings.TrimSpace(parts[0])
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", parts[1], err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range", port)
	}

	ep := &Endpoint{
		Host: host,
		Port: port,
	}

	if len(parts) == 4 {
		ep.Username = parts[2]
		ep.Password = parts[3]
		if ep.Username == "" {
			return nil, fmt.Errorf("username is required when credentials are given")
		}
	}

	return ep, nil
}

// Format builds the stored endpoint string. Credentials are appended only
// when a username is set.
func Format(host string, port int, username, password string) string {
	s := fmt.Sprintf("%s:%d", host, port)
	if username != "" {
		s += ":" + username + ":" + password
	}
	return s
}

func (e Endpoint) String() string {
	return Format(e.Host, e.Port, e.Username, e.Password)
}

func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) HasAuth() bool {
	return e.Username != ""
}

// URL renders the endpoint as a proxy URL for the given proxy type.
func (e Endpoint) URL(proxyType domain.ProxyType) (*url.URL, error) {
	if !proxyType.Valid() {
		return nil, fmt.Errorf("unsupported proxy type: %s", proxyType)
	}

	u := &url.URL{
		Scheme: string(proxyType),
		Host:   e.Address(),
	}
	if e.HasAuth() {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u, nil
}
