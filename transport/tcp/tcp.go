// Package tcp dials TCP connections, optionally secured with TLS,
// through the operating system's network stack.
package tcp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"time"

	"grabber/application/util/domain"
	"grabber/transport"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var ErrUnsupportedProtocol = errors.New("unsupported protocol")

type Options struct {
	// Lookuper resolves domain names. The system resolver is used if nil.
	Lookuper domain.Lookuper

	// TLSConfig is cloned for every TLS connection.
	// ServerName defaults to the host being dialed.
	TLSConfig *tls.Config

	// KeepAlive is passed to [net.Dialer]. Zero means the default.
	KeepAlive time.Duration
}

var DefaultOptions = Options{}

type Dialer struct {
	dialer    net.Dialer
	lookuper  domain.Lookuper
	tlsConfig *tls.Config
}

var _ transport.ConnDialer = (*Dialer)(nil)

func NewDialer(opts Options) *Dialer {
	return &Dialer{
		dialer:    net.Dialer{KeepAlive: opts.KeepAlive},
		lookuper:  opts.Lookuper,
		tlsConfig: opts.TLSConfig,
	}
}

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	if addr.Protocol != transport.TCP && addr.Protocol != transport.TLS {
		return nil, errors.Wrapf(ErrUnsupportedProtocol, "%q", addr.Protocol)
	}

	nc, err := d.dialTCP(ctx, addr)
	if err != nil {
		return nil, err
	}

	if addr.Protocol == transport.TLS {
		config := d.tlsConfig.Clone()
		if config == nil {
			config = &tls.Config{}
		}
		if config.ServerName == "" {
			config.ServerName = addr.Host
		}

		tc := tls.Client(nc, config)
		if err := tc.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, errors.Wrapf(err, "handshaking with %s", addr)
		}
		nc = tc
	}

	return newConn(nc, addr.Protocol), nil
}

// dialTCP tries every address host resolves to, in order, until one connects.
func (d *Dialer) dialTCP(ctx context.Context, addr transport.Addr) (net.Conn, error) {
	hosts := []string{addr.Host}

	if _, err := netip.ParseAddr(addr.Host); err != nil && d.lookuper != nil {
		ips, err := d.lookuper.LookupIP(ctx, addr.Host)
		if err != nil {
			return nil, errors.Wrapf(err, "looking up %s", addr.Host)
		}

		if len(ips) == 0 {
			return nil, errors.Wrapf(domain.ErrDomainNotFound, "%s", addr.Host)
		}

		hosts = hosts[:0]
		for _, ip := range ips {
			hosts = append(hosts, ip.String())
		}
	}

	port := strconv.FormatUint(uint64(addr.Port), 10)

	var errs error
	for _, host := range hosts {
		nc, err := d.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
		if err == nil {
			return nc, nil
		}

		errs = multierr.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.Wrapf(errs, "dialing %s", addr)
}

type conn struct {
	nc            net.Conn
	local, remote transport.Addr

	closeOnce sync.Once
	closeErr  error
}

var _ transport.Conn = (*conn)(nil)

func newConn(nc net.Conn, protocol transport.Protocol) *conn {
	return &conn{
		nc:     nc,
		local:  fromNetAddr(protocol, nc.LocalAddr()),
		remote: fromNetAddr(protocol, nc.RemoteAddr()),
	}
}

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, convertErr(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, convertErr(err)
}

// Close is idempotent and returns the result of the first call.
func (c *conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.nc.Close() })
	return c.closeErr
}

func (c *conn) LocalAddr() transport.Addr  { return c.local }
func (c *conn) RemoteAddr() transport.Addr { return c.remote }

func (c *conn) SetReadDeadLine(t time.Time)  { _ = c.nc.SetReadDeadline(t) }
func (c *conn) SetWriteDeadLine(t time.Time) { _ = c.nc.SetWriteDeadline(t) }

// convertErr maps errors of the net package into ones of the transport package.
// Peer closing the connection is reported as [transport.ErrConnClosed] too.
func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return transport.ErrConnClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return transport.ErrDeadLineExceeded
	}
	return err
}

func fromNetAddr(protocol transport.Protocol, a net.Addr) transport.Addr {
	ap, err := netip.ParseAddrPort(a.String())
	if err != nil {
		return transport.Addr{Protocol: protocol, Host: a.String()}
	}
	return transport.Addr{Protocol: protocol, Host: ap.Addr().Unmap().String(), Port: ap.Port()}
}
