package http

import (
	"net"
	"net/http"
	"time"
)

type TransportFunc func(http.RoundTripper) http.RoundTripper

// Timeouts bounds each phase of an outbound call. Zero fields keep the default.
type Timeouts struct {
	Request        time.Duration
	Dial           time.Duration
	KeepAlive      time.Duration
	TLSHandshake   time.Duration
	ResponseHeader time.Duration
	IdleConn       time.Duration
}

func defaultTimeouts() Timeouts {
	return Timeouts{
		Request:        30 * time.Second,
		Dial:           5 * time.Second,
		KeepAlive:      90 * time.Second,
		TLSHandshake:   10 * time.Second,
		ResponseHeader: 10 * time.Second,
		IdleConn:       90 * time.Second,
	}
}

func (t Timeouts) merge(override Timeouts) Timeouts {
	pick := func(base, v time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return base
	}
	return Timeouts{
		Request:        pick(t.Request, override.Request),
		Dial:           pick(t.Dial, override.Dial),
		KeepAlive:      pick(t.KeepAlive, override.KeepAlive),
		TLSHandshake:   pick(t.TLSHandshake, override.TLSHandshake),
		ResponseHeader: pick(t.ResponseHeader, override.ResponseHeader),
		IdleConn:       pick(t.IdleConn, override.IdleConn),
	}
}

type clientConfig struct {
	timeouts            Timeouts
	maxIdleConnsPerHost int
	transports          []TransportFunc
}

type HttpOpts func(*clientConfig)

// WithTimeouts overrides the non-zero fields of t.
func WithTimeouts(t Timeouts) HttpOpts {
	return func(c *clientConfig) {
		c.timeouts = c.timeouts.merge(t)
	}
}

// WithTransport wraps the transport. Wrappers apply in registration order, the last one outermost.
func WithTransport(transport TransportFunc) HttpOpts {
	return func(c *clientConfig) {
		c.transports = append(c.transports, transport)
	}
}

func newClient(opts ...HttpOpts) *http.Client {
	cfg := &clientConfig{
		timeouts:            defaultTimeouts(),
		maxIdleConnsPerHost: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := net.Dialer{
		Timeout:   cfg.timeouts.Dial,
		KeepAlive: cfg.timeouts.KeepAlive,
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		TLSHandshakeTimeout:   cfg.timeouts.TLSHandshake,
		ResponseHeaderTimeout: cfg.timeouts.ResponseHeader,
		IdleConnTimeout:       cfg.timeouts.IdleConn,
	}
	for _, wrap := range cfg.transports {
		transport = wrap(transport)
	}

	return &http.Client{
		Timeout:   cfg.timeouts.Request,
		Transport: transport,
	}
}
