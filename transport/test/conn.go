// Package test holds the behavior every [transport.Conn] shares.
package test

import (
	"bytes"
	"io"
	"sync"
	"time"

	"grabber/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// ConnTestSuite is embedded by the test suite of each [transport.Conn].
// SetupTest of the embedding suite must call the one of ConnTestSuite and
// then connect C1 and C2 to each other.
type ConnTestSuite struct {
	suite.Suite
	C1, C2 transport.Conn
	Clock  clock.Clock

	// Buffered is set for conns whose writes complete before the peer reads,
	// such as operating system sockets. Blocking and peer-close behaviors of
	// synchronous conns are then not checked.
	Buffered bool
}

func (s *ConnTestSuite) SetupTest() {
	s.Clock = clock.New()
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.NoError(s.C1.Close())
	s.NoError(s.C2.Close())
}

// async runs fn in a goroutine. The returned func waits for it and fails
// the test if it took longer than a second.
func (s *ConnTestSuite) async(fn func()) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	return func() {
		select {
		case <-done:
		case <-time.After(time.Second):
			s.FailNow("timeout exceeded")
		}
	}
}

// readUntilClosed reads conn until the peer closes it.
func (s *ConnTestSuite) readUntilClosed(conn transport.Conn, chunk int) []byte {
	var received []byte
	buf := make([]byte, chunk)
	for {
		n, err := conn.Read(buf)
		received = append(received, buf[:n]...)
		if err != nil {
			s.ErrorIs(err, transport.ErrConnClosed)
			return received
		}
	}
}

func (s *ConnTestSuite) TestReadWrite() {
	data := []byte("Hello, World!")

	wait := s.async(func() {
		n, err := s.C1.Write(data)
		s.NoError(err)
		s.Equal(len(data), n)
	})

	got := make([]byte, len(data))
	_, err := io.ReadFull(s.C2, got)
	s.Require().NoError(err)
	s.Equal(data, got)

	wait()
}

func (s *ConnTestSuite) TestShortBuffer() {
	data := []byte("0123456789abc")

	wait := s.async(func() {
		_, err := s.C1.Write(data)
		s.NoError(err)
	})

	var got []byte
	buf := make([]byte, 4)
	for len(got) < len(data) {
		n, err := s.C2.Read(buf)
		s.Require().NoError(err)
		s.LessOrEqual(n, len(buf))
		got = append(got, buf[:n]...)
	}
	s.Equal(data, got)

	wait()
}

func (s *ConnTestSuite) TestConcurrentWrites() {
	data := []byte("ABCD")
	const writers = 10

	var received []byte
	wait := s.async(func() { received = s.readUntilClosed(s.C2, 3) })

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.C1.Write(data)
			s.NoError(err)
			s.Equal(len(data), n)
		}()
	}
	wg.Wait()
	s.Require().NoError(s.C1.Close())

	wait()
	// Writes do not interleave, so every chunk arrives whole.
	s.Equal(bytes.Repeat(data, writers), received)
}

func (s *ConnTestSuite) TestClose() {
	s.Require().NoError(s.C1.Close())
	s.NoError(s.C1.Close(), "closing twice")

	buf := make([]byte, 10)

	n, err := s.C1.Read(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	n, err = s.C1.Write(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	n, err = s.C2.Read(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	if s.Buffered {
		// A write may be accepted before the close of the peer is known.
		return
	}
	n, err = s.C2.Write(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)
}

func (s *ConnTestSuite) TestCloseInterruptsRead() {
	wait := s.async(func() {
		_, err := s.C1.Read(make([]byte, 1))
		s.ErrorIs(err, transport.ErrConnClosed)
	})

	time.Sleep(20 * time.Millisecond)
	s.Require().NoError(s.C2.Close())
	wait()
}

func (s *ConnTestSuite) TestCloseInterruptsWrite() {
	if s.Buffered {
		s.T().Skip("writes do not wait for the peer")
	}

	wait := s.async(func() {
		_, err := s.C1.Write([]byte("hey"))
		s.ErrorIs(err, transport.ErrConnClosed)
	})

	time.Sleep(20 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
	wait()
}

func (s *ConnTestSuite) TestDeadLine() {
	testcases := []struct {
		desc string
		set  func(time.Time)
		op   func([]byte) (int, error)
	}{
		{desc: "read", set: s.C1.SetReadDeadLine, op: s.C1.Read},
		{desc: "write", set: s.C1.SetWriteDeadLine, op: s.C1.Write},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			tc.set(s.Clock.Now().Add(-time.Second))
			n, err := tc.op([]byte{'x'})
			s.ErrorIs(err, transport.ErrDeadLineExceeded)
			s.Zero(n)

			// Clearing the deadline makes the conn usable again.
			tc.set(time.Time{})
		})
	}

	wait := s.async(func() {
		_, err := s.C1.Write([]byte{'y'})
		s.NoError(err)
	})
	b := make([]byte, 1)
	_, err := s.C2.Read(b)
	s.NoError(err)
	s.Equal([]byte{'y'}, b)
	wait()
}

func (s *ConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C2.LocalAddr(), s.C1.RemoteAddr())
}

// TestExchange plays a single request and response, the way a client and
// a server that closes after responding use a connection.
func (s *ConnTestSuite) TestExchange() {
	request := []byte("GET / HTTP/1.1\r\nHost: a\r\n\r\n")
	response := []byte("HTTP/1.1 200 OK\r\n\r\nhello")

	wait := s.async(func() {
		got := make([]byte, len(request))
		if _, err := io.ReadFull(s.C2, got); !s.NoError(err) {
			return
		}
		s.Equal(request, got)

		if _, err := s.C2.Write(response); !s.NoError(err) {
			return
		}
		s.NoError(s.C2.Close())
	})

	_, err := s.C1.Write(request)
	s.Require().NoError(err)

	s.Equal(response, s.readUntilClosed(s.C1, 4))
	wait()
}
