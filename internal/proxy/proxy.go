// Package proxy implements a transparent TCP forwarding bridge: every
// connection accepted on the local address is relayed byte-for-byte to a
// fixed remote address until either side closes.
package proxy

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/matst80/portbridge/internal/obs"
	"github.com/matst80/portbridge/internal/ratelimit"
)

// Config is the immutable runtime configuration of one bridge instance.
type Config struct {
	LocalHost  string
	LocalPort  int
	RemoteHost string
	RemotePort int

	// DialTimeout bounds the outbound connect per session. Zero means 5s.
	DialTimeout time.Duration

	// AcceptRate limits accepted connections per second (0 = unlimited).
	AcceptRate  int
	AcceptBurst int
}

func (c Config) LocalAddr() string  { return net.JoinHostPort(c.LocalHost, strconv.Itoa(c.LocalPort)) }
func (c Config) RemoteAddr() string { return net.JoinHostPort(c.RemoteHost, strconv.Itoa(c.RemotePort)) }

// Proxy owns one listener and the sessions spawned from it. All state is
// per instance; multiple proxies can run independently in one process.
type Proxy struct {
	cfg     Config
	limiter *ratelimit.Bucket

	mu      sync.Mutex
	running bool
	ln      net.Listener
	done    chan struct{} // closed when the accept loop exits

	sessions sync.WaitGroup
}

func New(cfg Config) *Proxy {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Proxy{cfg: cfg, limiter: ratelimit.New(cfg.AcceptRate, cfg.AcceptBurst)}
}

// Config returns the configuration the proxy was built with.
func (p *Proxy) Config() Config { return p.cfg }

// Start binds the local listener and begins accepting. A bind failure
// (port in use, permission denied) is returned and leaves the proxy
// stopped. Starting a running proxy is an error.
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("proxy already running")
	}
	ln, err := net.Listen("tcp", p.cfg.LocalAddr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", p.cfg.LocalAddr(), err)
	}
	p.ln = ln
	p.running = true
	p.done = make(chan struct{})
	obs.Info("proxy.start", obs.Fields{"local": ln.Addr().String(), "remote": p.cfg.RemoteAddr()})
	go p.acceptLoop(ln, p.done)
	return nil
}

func (p *Proxy) acceptLoop(ln net.Listener, done chan struct{}) {
	defer close(done)
	for {
		c, err := ln.Accept()
		if err != nil {
			// Stop() closes the listener; that is the clean exit path.
			if errors.Is(err, net.ErrClosed) {
				obs.Debug("proxy.accept.closed", obs.Fields{"local": ln.Addr().String()})
				return
			}
			obs.Error("proxy.accept", obs.Fields{"err": err.Error()})
			obs.AcceptErrorsTotal.Inc()
			continue
		}
		if !p.limiter.Allow() {
			obs.Debug("proxy.accept.limited", obs.Fields{"client": c.RemoteAddr().String()})
			obs.AcceptRejectedTotal.Inc()
			_ = c.Close()
			continue
		}
		p.sessions.Add(1)
		go func(c net.Conn) {
			defer p.sessions.Done()
			relay(c, p.cfg.RemoteAddr(), p.cfg.DialTimeout)
		}(c)
	}
}

// Stop closes the listener, unblocking the accept loop and releasing the
// bound port. In-flight sessions drain naturally. Stopping a stopped
// proxy is a no-op.
func (p *Proxy) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	ln := p.ln
	p.ln = nil
	p.mu.Unlock()
	_ = ln.Close()
	obs.Info("proxy.stop", obs.Fields{"local": p.cfg.LocalAddr()})
}

// Running reports whether the listener is currently accepting.
func (p *Proxy) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Addr returns the bound listener address, or nil when stopped. Useful
// when the configured port is 0.
func (p *Proxy) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln == nil {
		return nil
	}
	return p.ln.Addr()
}

// Wait blocks until the accept loop has exited and all sessions drained.
func (p *Proxy) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
	p.sessions.Wait()
}
