package tcp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strconv"
	"testing"

	"grabber/application/util/domain"
	"grabber/transport"
	"grabber/transport/test"

	"github.com/stretchr/testify/suite"
)

const rawRequest = "GET /hello HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"

type DialerTestSuite struct {
	suite.Suite

	plain, secure *httptest.Server
}

func TestDialerTestSuite(t *testing.T) {
	suite.Run(t, new(DialerTestSuite))
}

func (s *DialerTestSuite) SetupSuite() {
	handler := nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "hello from "+r.URL.Path)
	})

	s.plain = httptest.NewServer(handler)
	s.secure = httptest.NewTLSServer(handler)
}

func (s *DialerTestSuite) TearDownSuite() {
	s.plain.Close()
	s.secure.Close()
}

func (s *DialerTestSuite) addrOf(server *httptest.Server, protocol transport.Protocol) transport.Addr {
	u, err := url.Parse(server.URL)
	s.Require().NoError(err)

	port, err := strconv.ParseUint(u.Port(), 10, 16)
	s.Require().NoError(err)

	return transport.Addr{Protocol: protocol, Host: u.Hostname(), Port: uint16(port)}
}

func (s *DialerTestSuite) tlsConfig() *tls.Config {
	return s.secure.Client().Transport.(*nethttp.Transport).TLSClientConfig.Clone()
}

// exchange writes a request and reads until the server closes the connection.
func (s *DialerTestSuite) exchange(conn transport.Conn) string {
	_, err := conn.Write([]byte(rawRequest))
	s.Require().NoError(err)

	var received []byte
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		received = append(received, buf[:n]...)
		if err != nil {
			s.Require().ErrorIs(err, transport.ErrConnClosed)
			break
		}
	}

	return string(received)
}

func (s *DialerTestSuite) TestDial() {
	testcases := []struct {
		desc   string
		server func() *httptest.Server
		opts   func() Options
		addr   func() transport.Addr
	}{
		{
			desc:   "tcp",
			server: func() *httptest.Server { return s.plain },
			opts:   func() Options { return DefaultOptions },
			addr:   func() transport.Addr { return s.addrOf(s.plain, transport.TCP) },
		},
		{
			desc:   "tls",
			server: func() *httptest.Server { return s.secure },
			opts:   func() Options { return Options{TLSConfig: s.tlsConfig()} },
			addr:   func() transport.Addr { return s.addrOf(s.secure, transport.TLS) },
		},
		{
			desc:   "tls with lookuper",
			server: func() *httptest.Server { return s.secure },
			opts: func() Options {
				// The test certificate is valid for example.com.
				lookuper := domain.NewMapLookuper(map[string][]netip.Addr{
					"example.com": {netip.MustParseAddr("127.0.0.1")},
				})
				return Options{TLSConfig: s.tlsConfig(), Lookuper: lookuper}
			},
			addr: func() transport.Addr {
				addr := s.addrOf(s.secure, transport.TLS)
				addr.Host = "example.com"
				return addr
			},
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			addr := tc.addr()

			conn, err := NewDialer(tc.opts()).Dial(context.Background(), addr)
			s.Require().NoError(err)
			defer conn.Close()

			s.Equal(addr.Port, conn.RemoteAddr().Port)
			s.Equal("127.0.0.1", conn.RemoteAddr().Host)
			s.Equal(addr.Protocol, conn.LocalAddr().Protocol)

			response := s.exchange(conn)
			s.Contains(response, "HTTP/1.1 200 OK\r\n")
			s.Contains(response, "\r\n\r\nhello from /hello")
		})
	}
}

func (s *DialerTestSuite) TestTLSUntrusted() {
	conn, err := NewDialer(DefaultOptions).Dial(context.Background(), s.addrOf(s.secure, transport.TLS))
	s.Error(err)
	s.Nil(conn)
}

func (s *DialerTestSuite) TestConnectionRefused() {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	port := lis.Addr().(*net.TCPAddr).Port
	s.Require().NoError(lis.Close())

	addr := transport.Addr{Protocol: transport.TCP, Host: "127.0.0.1", Port: uint16(port)}
	conn, err := NewDialer(DefaultOptions).Dial(context.Background(), addr)
	s.Error(err)
	s.Nil(conn)
}

type emptyLookuper struct{}

func (emptyLookuper) LookupIP(context.Context, string) ([]netip.Addr, error) { return nil, nil }

func (s *DialerTestSuite) TestLookupFailure() {
	testcases := []struct {
		desc     string
		lookuper domain.Lookuper
	}{
		{desc: "unknown domain", lookuper: domain.NewMapLookuper(nil)},
		{
			desc:     "empty table entry",
			lookuper: domain.NewMapLookuper(map[string][]netip.Addr{"nowhere.test": {}}),
		},
		{desc: "no addresses without error", lookuper: emptyLookuper{}},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			for _, protocol := range []transport.Protocol{transport.TCP, transport.TLS} {
				addr := transport.Addr{Protocol: protocol, Host: "nowhere.test", Port: 80}
				conn, err := NewDialer(Options{Lookuper: tc.lookuper}).Dial(context.Background(), addr)
				s.ErrorIs(err, domain.ErrDomainNotFound)
				s.Nil(conn)
			}
		})
	}
}

func (s *DialerTestSuite) TestUnsupportedProtocol() {
	addr := transport.Addr{Protocol: "udp", Host: "127.0.0.1", Port: 53}
	conn, err := NewDialer(DefaultOptions).Dial(context.Background(), addr)
	s.ErrorIs(err, ErrUnsupportedProtocol)
	s.Nil(conn)
}

func (s *DialerTestSuite) TestCanceled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn, err := NewDialer(DefaultOptions).Dial(ctx, s.addrOf(s.plain, transport.TCP))
	s.ErrorIs(err, context.Canceled)
	s.Nil(conn)
}

func (s *DialerTestSuite) TestReadAfterClose() {
	conn, err := NewDialer(DefaultOptions).Dial(context.Background(), s.addrOf(s.plain, transport.TCP))
	s.Require().NoError(err)
	s.Require().NoError(conn.Close())

	_, err = conn.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrConnClosed)

	_, err = conn.Write([]byte("x"))
	s.ErrorIs(err, transport.ErrConnClosed)
}

type TCPConnTestSuite struct {
	test.ConnTestSuite
}

func TestTCPConnTestSuite(t *testing.T) {
	suite.Run(t, new(TCPConnTestSuite))
}

// SetupTest connects C1, dialed through [Dialer], to C2 accepted on loopback.
func (s *TCPConnTestSuite) SetupTest() {
	s.ConnTestSuite.SetupTest()
	s.Buffered = true

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	defer lis.Close()

	port := lis.Addr().(*net.TCPAddr).Port
	addr := transport.Addr{Protocol: transport.TCP, Host: "127.0.0.1", Port: uint16(port)}

	c1, err := NewDialer(DefaultOptions).Dial(context.Background(), addr)
	s.Require().NoError(err)

	nc, err := lis.Accept()
	s.Require().NoError(err)

	s.C1, s.C2 = c1, newConn(nc, transport.TCP)
}
