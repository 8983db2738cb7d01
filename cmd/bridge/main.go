package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/matst80/portbridge/internal/obs"
	"github.com/matst80/portbridge/internal/proxy"
	"github.com/matst80/portbridge/internal/resolver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	flag.Parse()
	if cfg.Debug {
		obs.EnableDebug(true)
	}

	remoteHost := cfg.RemoteHost
	if remoteHost == "" {
		remoteHost = detectRemoteHost()
	}

	p := proxy.New(proxy.Config{
		LocalHost:   cfg.LocalHost,
		LocalPort:   cfg.LocalPort,
		RemoteHost:  remoteHost,
		RemotePort:  cfg.RemotePort,
		DialTimeout: cfg.DialTimeout,
		AcceptRate:  cfg.AcceptRate,
		AcceptBurst: cfg.AcceptBurst,
	})

	if cfg.TestMode {
		runConnectivityTest(p)
		return
	}
	if cfg.HealthMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(p.HealthCheck())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(); err != nil {
		obs.Error("bridge.bind", obs.Fields{"err": err.Error()})
		os.Exit(1)
	}
	if cfg.MetricsAddr != "" {
		go startMetricsServer(cfg.MetricsAddr, p)
	}
	obs.Info("bridge.ready", obs.Fields{"local": p.Addr().String(), "remote": p.Config().RemoteAddr()})

	<-ctx.Done()
	obs.Info("bridge.shutdown.signal", obs.Fields{})
	p.Stop()
	p.Wait()
	obs.Info("bridge.shutdown.complete", obs.Fields{})
}

func detectRemoteHost() string {
	r, err := resolver.FromOptions(resolver.Options{
		Strategy:      cfg.Resolver,
		ProbeCommand:  strings.Fields(cfg.ProbeCommand),
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisKey:      cfg.RedisKey,
	})
	if err != nil {
		obs.Error("bridge.resolver", obs.Fields{"err": err.Error()})
		os.Exit(1)
	}
	return resolver.Detect(context.Background(), r, cfg.FallbackHost, cfg.ProbeTimeout)
}

func runConnectivityTest(p *proxy.Proxy) {
	report := p.HealthCheck()
	fmt.Printf("Local port (%s:%d) open: %v\n", report.LocalHost, report.LocalPort, report.LocalPortOpen)
	fmt.Printf("Remote server (%s:%d) reachable: %v\n", report.RemoteHost, report.RemotePort, report.RemoteReachable)
	if !report.RemoteReachable {
		fmt.Println("cannot reach remote server; check it is running and the firewall allows connections")
		os.Exit(1)
	}
	fmt.Println("all connections look good")
}

// startMetricsServer serves Prometheus metrics and simple health endpoints.
func startMetricsServer(addr string, p *proxy.Proxy) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !p.Running() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.HealthCheck())
	})
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		obs.Error("metrics.server", obs.Fields{"err": err.Error(), "addr": addr})
	}
}
