// Package network lets a single port serve HTTPS while answering plain HTTP requests
// with a redirect to the HTTPS URL.
package network

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"sync"
)

// First byte of every TLS record carrying a handshake message.
const tlsHandshakeRecord = 0x16

// RedirectListener wraps the raw TCP listener underneath tls.NewListener. With a
// domain set, redirects point at that domain instead of the request's Host header.
type RedirectListener struct {
	net.Listener
	domain string
}

func NewRedirectListener(listener net.Listener, domain string) net.Listener {
	return &RedirectListener{Listener: listener, domain: domain}
}

func (l *RedirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &sniffConn{Conn: conn, r: bufio.NewReader(conn), domain: l.domain}, nil
}

// sniffConn inspects the first byte of a connection. TLS traffic passes through;
// anything else is read as an HTTP request and answered with a 308.
type sniffConn struct {
	net.Conn
	r      *bufio.Reader
	domain string

	once sync.Once
	err  error
}

func (c *sniffConn) Read(b []byte) (int, error) {
	c.once.Do(c.sniff)
	if c.err != nil {
		return 0, c.err
	}
	return c.r.Read(b)
}

func (c *sniffConn) sniff() {
	first, err := c.r.Peek(1)
	if err != nil || first[0] == tlsHandshakeRecord {
		return
	}

	c.err = io.EOF
	defer c.Conn.Close()

	req, err := http.ReadRequest(c.r)
	if err != nil {
		return
	}
	resp := &http.Response{
		StatusCode: http.StatusPermanentRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Close:      true,
	}
	resp.Header.Set("Location", "https://"+c.redirectHost(req.Host)+req.RequestURI)
	_ = resp.Write(c.Conn)
}

func (c *sniffConn) redirectHost(reqHost string) string {
	if c.domain == "" {
		return reqHost
	}
	_, port, err := net.SplitHostPort(c.LocalAddr().String())
	if err != nil || port == "443" {
		return c.domain
	}
	return net.JoinHostPort(c.domain, port)
}
