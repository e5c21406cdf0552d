package client

import (
	"context"
	"log/slog"

	"grabber/application/http"
	"grabber/application/http/status"
	iolib "grabber/lib/io"
	"grabber/transport"
	"grabber/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Client sends one request per connection and reads the response until
// the server closes it. It holds no per-request state and is safe for
// concurrent use.
type Client struct {
	opts Options

	logger *slog.Logger
	clock  clock.Clock

	connDialer transport.ConnDialer
}

func New(
	d transport.ConnDialer,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Client {
	return &Client{
		connDialer: d,
		logger:     logger,
		clock:      clock,
		opts:       opts,
	}
}

// Grab sends a request to rawURL over the network, logging to [slog.Default].
func Grab(ctx context.Context, rawURL string, init *http.RequestInit) (*http.Response, error) {
	c := New(tcp.NewDialer(tcp.DefaultOptions), slog.Default(), clock.New(), DefaultOptions)
	return c.Grab(ctx, rawURL, init)
}

// Grab builds a request to rawURL, sends it and returns the parsed response.
// init may be nil. Invalid requests fail before any connection is opened.
func (c *Client) Grab(ctx context.Context, rawURL string, init *http.RequestInit) (*http.Response, error) {
	request, err := http.NewRequest(rawURL, init)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	return c.Send(ctx, request)
}

// Send sends request and returns the parsed response.
// ctx only bounds establishing the connection.
func (c *Client) Send(ctx context.Context, request *http.Request) (*http.Response, error) {
	var body http.EncodedBody
	if request.HasBody() {
		encoded, err := http.EncodeBody(request.Body, c.opts.Send.Encode)
		if err != nil {
			return nil, errors.Wrap(err, "encoding body")
		}
		body = encoded
	}

	raw := http.BuildRequest(request, body)

	addr := addrOf(request)
	logger := c.logger.With("addr", addr)

	start := c.clock.Now()
	conn, err := c.connDialer.Dial(ctx, addr)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	logger.Debug("connected", "elapsed", c.clock.Since(start))

	received, err := c.exchange(logger, conn, []byte(raw))
	if err != nil {
		return nil, err
	}
	logger.Debug("received response", "bytes", len(received), "elapsed", c.clock.Since(start))

	res := http.ParseResponse(string(received))

	if !c.opts.Receive.UseReceivedReasonPhrase {
		if text := status.Text(res.StatusCode); text != "" {
			res.StatusText = text
		}
	}

	if res.Malformed != nil {
		if c.opts.Receive.StrictResponse {
			return nil, &MalformedResponseError{Err: res.Malformed}
		}
		logger.Warn("response is malformed", "error", res.Malformed)
	}

	return &res, nil
}

// exchange writes raw and reads until the peer closes the connection.
// conn is closed before it returns.
func (c *Client) exchange(logger *slog.Logger, conn transport.Conn, raw []byte) ([]byte, error) {
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("error when closing connection", "error", err)
		}
	}()

	if written, err := iolib.WriteFull(conn, raw); err != nil {
		logger.Error("failed to send request", "error", err)
		return nil, &WriteError{Err: err, Written: int(written)}
	}

	// The server ends the response by closing the connection.
	received, err := iolib.ReadAll(iolib.EOFOn(conn, transport.ErrConnClosed))
	if err != nil {
		if !isComplete(received) {
			logger.Error("failed to read response", "error", err)
			return nil, &ReadError{Err: err, Partial: len(received)}
		}

		logger.Warn("read failed after the whole response arrived", "error", err, "bytes", len(received))
	}

	return received, nil
}

func addrOf(request *http.Request) transport.Addr {
	protocol := transport.TCP
	if request.Scheme == http.SchemeHTTPS {
		protocol = transport.TLS
	}

	return transport.Addr{Protocol: protocol, Host: request.Host, Port: request.Port}
}
