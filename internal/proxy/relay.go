package proxy

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/matst80/portbridge/internal/obs"
)

const copyBufSize = 4096

// relay dials remoteAddr and pumps bytes both ways until each direction
// has observed EOF or an error. Each socket is closed exactly once; the
// first direction to finish closes both, which unblocks the other pump
// so a half-open peer cannot hold the session forever.
func relay(client net.Conn, remoteAddr string, dialTimeout time.Duration) {
	remote, err := net.DialTimeout("tcp", remoteAddr, dialTimeout)
	if err != nil {
		// Non-fatal: this client is abandoned, the accept loop is unaffected.
		obs.Error("relay.dial", obs.Fields{"remote": remoteAddr, "err": err.Error()})
		obs.DialFailuresTotal.Inc()
		_ = client.Close()
		return
	}
	obs.SessionsTotal.Inc()
	obs.ActiveSessions.Inc()
	obs.Debug("relay.open", obs.Fields{"client": client.RemoteAddr().String(), "remote": remoteAddr})

	start := time.Now()
	var wg sync.WaitGroup
	var once sync.Once
	closeBoth := func() { _ = client.Close(); _ = remote.Close() }
	pump := func(dst, src net.Conn, direction string) {
		defer wg.Done()
		n, err := io.CopyBuffer(dst, src, make([]byte, copyBufSize))
		obs.BytesRelayedTotal.WithLabelValues(direction).Add(float64(n))
		if err != nil {
			obs.Debug("relay.copy", obs.Fields{"direction": direction, "err": err.Error()})
		}
		once.Do(closeBoth)
	}
	wg.Add(2)
	go pump(remote, client, "client_to_remote")
	go pump(client, remote, "remote_to_client")
	wg.Wait()

	obs.ActiveSessions.Dec()
	obs.SessionDurationSeconds.Observe(time.Since(start).Seconds())
	obs.Debug("relay.closed", obs.Fields{"client": client.RemoteAddr().String(), "duration_ms": time.Since(start).Milliseconds()})
}
