package proxy

import (
	"net"
	"time"
)

// HealthReport is the structured status returned by HealthCheck. The
// JSON field names are consumed by operational tooling; keep them stable.
type HealthReport struct {
	ProxyRunning    bool   `json:"proxy_running"`
	LocalPortOpen   bool   `json:"local_port_open"`
	RemoteReachable bool   `json:"remote_reachable"`
	LocalHost       string `json:"local_host"`
	LocalPort       int    `json:"local_port"`
	RemoteHost      string `json:"remote_host"`
	RemotePort      int    `json:"remote_port"`
	Warning         string `json:"warning,omitempty"`
}

const (
	localProbeTimeout  = 1 * time.Second
	remoteProbeTimeout = 2 * time.Second
)

// HealthCheck probes both ends of the bridge with short connect-and-close
// attempts. Probes open their own connections and never touch in-flight
// sessions.
func (p *Proxy) HealthCheck() HealthReport {
	r := HealthReport{
		ProxyRunning: p.Running(),
		LocalHost:    p.cfg.LocalHost,
		LocalPort:    p.cfg.LocalPort,
		RemoteHost:   p.cfg.RemoteHost,
		RemotePort:   p.cfg.RemotePort,
	}
	r.LocalPortOpen = probe(p.localProbeAddr(), localProbeTimeout)
	r.RemoteReachable = probe(p.cfg.RemoteAddr(), remoteProbeTimeout)
	if !r.RemoteReachable {
		r.Warning = "cannot reach remote server"
	}
	return r
}

// localProbeAddr prefers the live listener address so a wildcard bind
// (or port 0) still probes something dialable.
func (p *Proxy) localProbeAddr() string {
	addr := p.cfg.LocalAddr()
	if ln := p.Addr(); ln != nil {
		addr = ln.String()
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func probe(addr string, timeout time.Duration) bool {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
