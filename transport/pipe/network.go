package pipe

import (
	"context"
	"sync"

	"grabber/transport"

	"github.com/benbjohnson/clock"
)

// Network is an in-memory network. It dials and listens on any
// [transport.Addr] without touching the operating system.
type Network struct {
	clock clock.Clock

	mu        sync.Mutex
	listeners map[transport.Addr]*Listener
	lastPort  uint16
}

var _ transport.ConnDialer = (*Network)(nil)

func NewNetwork(clk clock.Clock) *Network {
	return &Network{
		clock:     clk,
		listeners: make(map[transport.Addr]*Listener),
	}
}

// dialRequest is queued on a listener. answer receives nil once accepted,
// or the reason it was refused.
type dialRequest struct {
	conn   *end
	answer chan error
}

// Dial connects to the listener at addr. It blocks until the listener
// accepts, refuses by closing, or ctx is done.
func (n *Network) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	l, local, ok := n.route(addr)
	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	client, server := Pipe(local, addr, n.clock)
	req := dialRequest{conn: server, answer: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrConnRefused
	case l.queue <- req:
	}

	select {
	case <-ctx.Done():
		// A late accept gets a conn whose peer is already closed.
		client.Close()
		return nil, ctx.Err()
	case err := <-req.answer:
		if err != nil {
			return nil, err
		}
	}

	return client, nil
}

// route finds the listener for addr and picks a fresh local address.
func (n *Network) route(addr transport.Addr) (*Listener, transport.Addr, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	l, ok := n.listeners[addr]
	if !ok {
		return nil, transport.Addr{}, false
	}

	n.lastPort++
	return l, transport.Addr{Protocol: addr.Protocol, Host: "dialer", Port: n.lastPort}, true
}

func (n *Network) Listen(addr transport.Addr) (*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[addr]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	l := &Listener{
		addr:    addr,
		network: n,
		queue:   make(chan dialRequest),
		closed:  make(chan struct{}),
	}
	n.listeners[addr] = l

	return l, nil
}

func (n *Network) forget(addr transport.Addr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.listeners, addr)
}

type Listener struct {
	addr    transport.Addr
	network *Network

	queue     chan dialRequest
	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.ConnListener = (*Listener)(nil)

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, transport.ErrConnListenerClosed
	case req := <-l.queue:
		req.answer <- nil
		return req.conn, nil
	}
}

// Close stops accepting and refuses dials still queued.
// Closing twice returns [transport.ErrConnListenerClosed].
func (l *Listener) Close() error {
	err := transport.ErrConnListenerClosed
	l.closeOnce.Do(func() {
		err = nil
		close(l.closed)
		l.network.forget(l.addr)
		l.refuseQueued()
	})
	return err
}

func (l *Listener) refuseQueued() {
	for {
		select {
		case req := <-l.queue:
			req.answer <- transport.ErrConnRefused
		default:
			return
		}
	}
}
