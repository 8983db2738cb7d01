package proxy

import (
	"bytes"
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

func startEchoServer(t *testing.T) net.Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start echo server: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = io.Copy(c, c)
			}(c)
		}
	}()
	return ln.Addr()
}

func startBridge(t *testing.T, remote string) *Proxy {
	t.Helper()
	host, portStr, err := net.SplitHostPort(remote)
	if err != nil {
		t.Fatalf("bad remote addr %q: %v", remote, err)
	}
	port, _ := strconv.Atoi(portStr)
	p := New(Config{LocalHost: "127.0.0.1", LocalPort: 0, RemoteHost: host, RemotePort: port})
	if err := p.Start(); err != nil {
		t.Fatalf("start proxy: %v", err)
	}
	t.Cleanup(func() {
		p.Stop()
		p.Wait()
	})
	return p
}

func dialBridge(t *testing.T, p *Proxy) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", p.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial proxy: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRelayEchoRoundTrip(t *testing.T) {
	echo := startEchoServer(t)
	p := startBridge(t, echo.String())
	c := dialBridge(t, p)

	_ = c.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, 4)
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if string(got) != "ping" {
		t.Errorf("echo = %q, want %q", got, "ping")
	}
}

func TestRelayPreservesLargePayloadOrder(t *testing.T) {
	echo := startEchoServer(t)
	p := startBridge(t, echo.String())
	c := dialBridge(t, p)

	// Larger than the relay's copy buffer so the payload crosses several reads.
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i * 31)
	}

	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	writeErr := make(chan error, 1)
	go func() {
		_, err := c.Write(payload)
		writeErr <- err
	}()

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatalf("read echoed payload: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("echoed payload differs from what was sent")
	}
}

func TestClientCloseTearsDownRemote(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start remote: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	remoteEOF := make(chan struct{})
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = io.Copy(io.Discard, c)
		close(remoteEOF)
	}()

	p := startBridge(t, ln.Addr().String())
	c := dialBridge(t, p)
	if _, err := c.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = c.Close()

	select {
	case <-remoteEOF:
	case <-time.After(time.Second):
		t.Fatal("remote side not closed within 1s of client close")
	}
}

func TestRemoteCloseTearsDownClient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start remote: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = c.Write([]byte("bye"))
		_ = c.Close()
	}()

	p := startBridge(t, ln.Addr().String())
	c := dialBridge(t, p)

	_ = c.SetDeadline(time.Now().Add(2 * time.Second))
	data, err := io.ReadAll(c)
	if err != nil {
		t.Fatalf("expected clean EOF after remote close, got %v", err)
	}
	if string(data) != "bye" {
		t.Errorf("read %q before EOF, want %q", data, "bye")
	}
}

func TestRemoteBannerReachesClient(t *testing.T) {
	// Remote speaks first, client never writes.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start remote: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = c.Write([]byte("banner"))
		_, _ = io.Copy(io.Discard, c)
	}()

	p := startBridge(t, ln.Addr().String())
	c := dialBridge(t, p)

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, 6)
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatalf("read banner: %v", err)
	}
	if string(got) != "banner" {
		t.Errorf("banner = %q, want %q", got, "banner")
	}
}

func TestRemoteRefusedClosesClient(t *testing.T) {
	// Grab a port that refuses connections by closing its listener.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	refused := ln.Addr().String()
	_ = ln.Close()

	p := startBridge(t, refused)
	c := dialBridge(t, p)

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected proxy to close the client connection")
	} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
		t.Fatal("client connection hung instead of being closed promptly")
	}
}
