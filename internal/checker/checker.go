package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
	"proxy-checker/internal/domain"
	"proxy-checker/internal/endpoint"
	"proxy-checker/internal/ipchecker"
	"proxy-checker/internal/target"
)

const maxPrimaryBody = 64 << 10

// TransportFactory builds the round tripper that carries probe traffic
// through one proxy credential.
type TransportFactory func(proxyType domain.ProxyType, ep *endpoint.Endpoint, timeout time.Duration) (http.RoundTripper, error)

// Checker probes every registry target through a proxy in parallel.
type Checker struct {
	registry  *target.Registry
	timeout   time.Duration
	transport TransportFactory
	metrics   domain.MetricsCollector
	logger    *zap.Logger
}

type Option func(*Checker)

func WithTransport(f TransportFactory) Option {
	return func(c *Checker) {
		c.transport = f
	}
}

func New(
	registry *target.Registry,
	timeout time.Duration,
	metrics domain.MetricsCollector,
	logger *zap.Logger,
	opts ...Option,
) *Checker {
	c := &Checker{
		registry:  registry,
		timeout:   timeout,
		transport: DefaultTransport,
		metrics:   metrics,
		logger:    logger.With(zap.String("component", "checker")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe never fails: every target outcome, including transport setup and
// credential errors, is reported inside the result. Cancelling ctx does not
// interrupt a probe that has started; each target is bounded by the timeout.
func (c *Checker) Probe(ctx context.Context, req domain.ProbeRequest) domain.ConnectivityResult {
	n := c.registry.Len()
	result := domain.ConnectivityResult{
		Connectivity: make([]domain.TargetResult, n),
		CheckedAt:    time.Now(),
	}

	ep, err := endpoint.ValidateRequest(req)
	if err != nil {
		fillError(result.Connectivity, domain.CodeCredentialParse, err)
		return result
	}

	rt, err := c.transport(req.ProxyType, ep, c.timeout)
	if err != nil {
		fillError(result.Connectivity, domain.CodeCredentialParse,
			fmt.Errorf("failed to build proxy transport: %w", err))
		return result
	}

	client := &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	defer client.CloseIdleConnections()

	probeCtx := context.WithoutCancel(ctx)
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("probe target panic recovered",
						zap.String("target", c.registry.At(i).Name),
						zap.Any("panic", r))
					result.Connectivity[i] = errorResult(domain.CodeConnect, fmt.Errorf("panic: %v", r))
				}
			}()

			res, info := c.probeTarget(probeCtx, client, i, req.IPChecker)
			result.Connectivity[i] = res
			if i == c.registry.Primary() {
				result.IPInfo = info
			}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	return result
}

func (c *Checker) probeTarget(ctx context.Context, client *http.Client, i int, ipChecker domain.IPChecker) (domain.TargetResult, *domain.IPInfo) {
	t := c.registry.At(i)
	primary := i == c.registry.Primary()

	res, info := c.fetch(ctx, client, t, primary, ipChecker)

	c.metrics.RecordTargetProbe(t.Name, res)
	if res.Connected() {
		c.logger.Debug("probe target connected",
			zap.String("target", t.Name),
			zap.Int64("latency_ms", res.LatencyMs))
	} else {
		c.logger.Debug("probe target failed",
			zap.String("target", t.Name),
			zap.String("code", string(res.Code)),
			zap.String("error", res.Error))
	}

	return res, info
}

func (c *Checker) fetch(ctx context.Context, client *http.Client, t domain.ProbeTarget, primary bool, ipChecker domain.IPChecker) (domain.TargetResult, *domain.IPInfo) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return errorResult(domain.CodeConnect, fmt.Errorf("failed to create request: %w", err)), nil
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return errorResult(classify(err), err), nil
	}
	defer resp.Body.Close()

	if !primary {
		return domain.TargetResult{
			Status:    domain.StatusConnected,
			LatencyMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorResult(domain.CodeBadStatus,
			fmt.Errorf("received non-successful status code: %d", resp.StatusCode)), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPrimaryBody))
	if err != nil {
		return errorResult(classify(err), fmt.Errorf("failed to read response: %w", err)), nil
	}
	latency := time.Since(start).Milliseconds()

	info, err := ipchecker.Decode(ipChecker, body)
	if err != nil {
		return errorResult(domain.CodeIPParse, err), nil
	}

	return domain.TargetResult{
		Status:    domain.StatusConnected,
		LatencyMs: latency,
	}, info
}

func classify(err error) domain.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.CodeTimeout
	}
	return domain.CodeConnect
}

func errorResult(code domain.ErrorCode, err error) domain.TargetResult {
	return domain.TargetResult{
		Status: domain.StatusError,
		Code:   code,
		Error:  err.Error(),
	}
}

func fillError(results []domain.TargetResult, code domain.ErrorCode, err error) {
	for i := range results {
		results[i] = errorResult(code, err)
	}
}

// DefaultTransport dials http proxies through the standard proxy support and
// socks5 proxies through golang.org/x/net/proxy.
func DefaultTransport(proxyType domain.ProxyType, ep *endpoint.Endpoint, timeout time.Duration) (http.RoundTripper, error) {
	dialer := &net.Dialer{
		Timeout:       timeout,
		KeepAlive:     30 * time.Second,
		FallbackDelay: -1,
	}

	transport := &http.Transport{
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
	}

	switch proxyType {
	case domain.ProxyTypeHTTP:
		proxyURL, err := ep.URL(proxyType)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		transport.DialContext = dialer.DialContext

	case domain.ProxyTypeSocks5:
		var auth *proxy.Auth
		if ep.HasAuth() {
			auth = &proxy.Auth{User: ep.Username, Password: ep.Password}
		}
		socks, err := proxy.SOCKS5("tcp", ep.Address(), auth, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		transport.DialContext = contextDialer.DialContext

	default:
		return nil, fmt.Errorf("unsupported proxy type: %s", proxyType)
	}

	return transport, nil
}
