// Package resolver discovers the remote host a bridge should forward to.
//
// Discovery is best effort: every strategy runs under a deadline and the
// caller degrades to a static fallback host when the probe fails, times
// out, or produces nothing usable.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matst80/portbridge/internal/obs"
)

// Resolver looks up the remote host. Implementations must honor the
// context deadline; Detect enforces one.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Static always returns a fixed host.
type Static string

func (s Static) Resolve(context.Context) (string, error) { return string(s), nil }

// Detect runs r with a bounded deadline and returns the fallback host on
// any failure. Discovery failure is never fatal.
func Detect(ctx context.Context, r Resolver, fallback string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	host, err := r.Resolve(ctx)
	if err != nil {
		obs.Warn("resolver.fallback", obs.Fields{"err": err.Error(), "fallback": fallback})
		return fallback
	}
	host = strings.TrimSpace(host)
	if host == "" {
		obs.Warn("resolver.fallback", obs.Fields{"err": "empty result", "fallback": fallback})
		return fallback
	}
	obs.Info("resolver.detected", obs.Fields{"host": host})
	return host
}

// Options selects and configures a discovery strategy.
type Options struct {
	Strategy string // "command", "redis" or "static"

	Host string // fixed host for the static strategy

	ProbeCommand []string // command strategy: argv of the probe command

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// FromOptions builds the configured strategy.
func FromOptions(o Options) (Resolver, error) {
	switch o.Strategy {
	case "", "command":
		if len(o.ProbeCommand) == 0 {
			return nil, errors.New("command resolver requires a probe command")
		}
		obs.Info("resolver.strategy", obs.Fields{"type": "command", "command": strings.Join(o.ProbeCommand, " ")})
		return &Command{Name: o.ProbeCommand[0], Args: o.ProbeCommand[1:]}, nil
	case "redis":
		if o.RedisAddr == "" || o.RedisKey == "" {
			return nil, errors.New("redis resolver requires an address and a key")
		}
		obs.Info("resolver.strategy", obs.Fields{"type": "redis", "addr": o.RedisAddr, "key": o.RedisKey})
		return NewRedis(o.RedisAddr, o.RedisPassword, o.RedisDB, o.RedisKey), nil
	case "static":
		if o.Host == "" {
			return nil, errors.New("static resolver requires a host")
		}
		return Static(o.Host), nil
	default:
		return nil, fmt.Errorf("unknown resolver strategy %q", o.Strategy)
	}
}
