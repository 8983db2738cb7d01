package main

import (
	"flag"
	"time"
)

// Config holds all runtime configuration derived from flags.
type Config struct {
	LocalHost  string
	LocalPort  int
	RemoteHost string
	RemotePort int

	Resolver     string
	ProbeCommand string
	ProbeTimeout time.Duration
	FallbackHost string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	DialTimeout time.Duration
	AcceptRate  int
	AcceptBurst int

	MetricsAddr string
	Debug       bool
	TestMode    bool
	HealthMode  bool
}

var cfg Config

// init registers flags into the global flag set. main() simply parses and uses cfg.
func init() {
	flag.StringVar(&cfg.LocalHost, "local-host", "0.0.0.0", "local interface to bind (0.0.0.0 for external access)")
	flag.IntVar(&cfg.LocalPort, "local-port", 5432, "local port to listen on")
	flag.StringVar(&cfg.RemoteHost, "remote-host", "", "remote host to forward to (discovered via -resolver when empty)")
	flag.IntVar(&cfg.RemotePort, "remote-port", 5432, "remote port to forward to")

	flag.StringVar(&cfg.Resolver, "resolver", "command", "remote host discovery strategy: command or redis")
	flag.StringVar(&cfg.ProbeCommand, "probe-command", "wsl hostname -I", "command whose first output token is the remote host")
	flag.DurationVar(&cfg.ProbeTimeout, "probe-timeout", 5*time.Second, "upper bound on remote host discovery")
	flag.StringVar(&cfg.FallbackHost, "fallback-host", "172.30.209.31", "remote host used when discovery fails")

	flag.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address for the redis resolver")
	flag.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number")
	flag.StringVar(&cfg.RedisKey, "redis-key", "portbridge:remote-host", "redis key holding the remote host")

	flag.DurationVar(&cfg.DialTimeout, "dial-timeout", 5*time.Second, "per-session outbound connect timeout")
	flag.IntVar(&cfg.AcceptRate, "accept-rate", 0, "max accepted connections per second (0 = unlimited)")
	flag.IntVar(&cfg.AcceptBurst, "accept-burst", 10, "accept rate limiter burst size")

	flag.StringVar(&cfg.MetricsAddr, "metrics", "", "metrics and health listen address (empty = disabled)")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logs")
	flag.BoolVar(&cfg.TestMode, "test", false, "test connectivity and exit")
	flag.BoolVar(&cfg.HealthMode, "health", false, "print health report as JSON and exit")
}
