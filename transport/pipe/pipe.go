// Package pipe connects in-memory [transport.Conn] ends.
// Like net.Pipe, each end is synchronous and unbuffered: a write returns
// once the other end has read all of it.
package pipe

import (
	"sync"
	"time"

	"grabber/transport"

	"github.com/benbjohnson/clock"
)

type end struct {
	addr transport.Addr
	peer *end

	incoming chan []byte // chunks written by peer.
	consumed chan int    // how much of our pending chunk peer has read.

	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once

	readLimit, writeLimit *deadline
}

var _ transport.Conn = (*end)(nil)

// Pipe returns two connected ends. addr1 is the local address of c1 and
// addr2 the one of c2. Deadlines are measured with clk.
func Pipe(addr1, addr2 transport.Addr, clk clock.Clock) (c1, c2 *end) {
	c1, c2 = newEnd(addr1, clk), newEnd(addr2, clk)
	c1.peer, c2.peer = c2, c1
	return c1, c2
}

func newEnd(addr transport.Addr, clk clock.Clock) *end {
	return &end{
		addr:       addr,
		incoming:   make(chan []byte),
		consumed:   make(chan int),
		done:       make(chan struct{}),
		readLimit:  newDeadline(clk),
		writeLimit: newDeadline(clk),
	}
}

func (e *end) LocalAddr() transport.Addr  { return e.addr }
func (e *end) RemoteAddr() transport.Addr { return e.peer.addr }

// Close is idempotent. Both ends observe [transport.ErrConnClosed] afterwards.
func (e *end) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	return nil
}

func (e *end) Read(b []byte) (int, error) {
	if err := e.usable(e.readLimit); err != nil {
		return 0, err
	}

	select {
	case chunk := <-e.incoming:
		n := copy(b, chunk)
		e.peer.consumed <- n
		return n, nil
	case <-e.done:
		return 0, transport.ErrConnClosed
	case <-e.peer.done:
		return 0, transport.ErrConnClosed
	case <-e.readLimit.expired():
		return 0, transport.ErrDeadLineExceeded
	}
}

func (e *end) Write(b []byte) (int, error) {
	if err := e.usable(e.writeLimit); err != nil {
		return 0, err
	}

	// Concurrent writes must not interleave.
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	written := 0
	for written < len(b) {
		select {
		case e.peer.incoming <- b[written:]:
			written += <-e.consumed
		case <-e.done:
			return written, transport.ErrConnClosed
		case <-e.peer.done:
			return written, transport.ErrConnClosed
		case <-e.writeLimit.expired():
			return written, transport.ErrDeadLineExceeded
		}
	}

	return written, nil
}

// usable reports why an operation bounded by limit cannot start, if any.
// Closing wins over an expired deadline.
func (e *end) usable(limit *deadline) error {
	if isClosed(e.done) || isClosed(e.peer.done) {
		return transport.ErrConnClosed
	}
	if isClosed(limit.expired()) {
		return transport.ErrDeadLineExceeded
	}
	return nil
}

func (e *end) SetReadDeadLine(t time.Time)  { e.readLimit.set(t) }
func (e *end) SetWriteDeadLine(t time.Time) { e.writeLimit.set(t) }

// deadline is a resettable point in time. Its channel closes once reached.
type deadline struct {
	clock clock.Clock

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64 // bumped by set so that a stale timer does nothing.
	fired chan struct{}
}

func newDeadline(clk clock.Clock) *deadline {
	return &deadline{clock: clk, fired: make(chan struct{})}
}

// set moves the deadline to t. The zero time removes it.
// Operations already waiting observe the new deadline.
func (d *deadline) set(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if isClosed(d.fired) {
		d.fired = make(chan struct{})
	}

	if t.IsZero() {
		return
	}

	wait := d.clock.Until(t)
	if wait <= 0 {
		close(d.fired)
		return
	}

	gen := d.gen
	d.timer = d.clock.AfterFunc(wait, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.gen == gen {
			close(d.fired)
		}
	})
}

func (d *deadline) expired() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
