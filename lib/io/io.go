package iolib

import (
	"io"

	"github.com/pkg/errors"
)

func WriteFull(w io.Writer, buf []byte) (uint, error) {
	total := uint(0)
	for total < uint(len(buf)) {
		n, err := w.Write(buf[total:])
		total += uint(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadAll reads from r until EOF.
// Unlike [io.ReadAll], bytes read before a failure are returned with the error.
func ReadAll(r io.Reader) ([]byte, error) {
	b := make([]byte, 0, 512)
	for {
		n, err := r.Read(b[len(b):cap(b)])
		b = b[:len(b)+n]
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return b, err
		}

		if len(b) == cap(b) {
			// Add more capacity (let append pick how much).
			b = append(b, 0)[:len(b)]
		}
	}
}

type eofReader struct {
	r    io.Reader
	errs []error
}

// EOFOn returns a reader reporting [io.EOF] in place of any error matching errs.
// It lets a connection closed by the peer end a stream the way a file does.
func EOFOn(r io.Reader, errs ...error) io.Reader {
	return &eofReader{r: r, errs: errs}
}

func (er *eofReader) Read(p []byte) (n int, err error) {
	n, err = er.r.Read(p)
	for _, target := range er.errs {
		if errors.Is(err, target) {
			return n, io.EOF
		}
	}
	return n, err
}
