package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"grabber/application/util/rule"

	"github.com/pkg/errors"
)

type RequestEncoder struct {
	bw *bufio.Writer
}

func NewRequestEncoder(w io.Writer) *RequestEncoder {
	return &RequestEncoder{bw: bufio.NewWriter(w)}
}

func (re *RequestEncoder) writeLine(line []byte) error {
	if _, err := re.bw.Write(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	if _, err := re.bw.Write(rule.CRLF); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (re *RequestEncoder) encodeHeaders(headers Headers) error {
	for _, field := range headers {
		if err := re.writeLine([]byte(field.Text())); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// Write a empty line as all the headers are written.
	if err := re.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

// Encode writes request with body to the underlying writer.
// body must be the result of encoding request.Body; it is not written for GET.
func (re *RequestEncoder) Encode(request *Request, body EncodedBody) error {
	if !request.HasBody() {
		body = EncodedBody{}
	}

	if err := re.encodeRequestLine(request.Method, request.Target()); err != nil {
		return errors.Wrap(err, "encoding request line")
	}

	if err := re.encodeHeaders(wireHeaders(request, body)); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	// Body is followed by CRLF as well.
	if err := re.writeLine([]byte(body.Text)); err != nil {
		return errors.Wrap(err, "writing request body")
	}

	if err := re.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing request")
	}

	return nil
}

func (re *RequestEncoder) encodeRequestLine(method, target string) error {
	buf := bytes.NewBuffer(nil)

	buf.WriteString(method)
	buf.WriteByte(rule.SP)
	buf.WriteString(target)
	buf.WriteByte(rule.SP)
	buf.Write(Version11.Text())

	if err := re.writeLine(buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing line")
	}

	return nil
}

// wireHeaders returns the fields in the order they go on the wire.
// Host and Connection come first, then the caller's fields in insertion order,
// then Content-Type and Content-Length for requests carrying a body.
func wireHeaders(request *Request, body EncodedBody) Headers {
	headers := make(Headers, 0, len(request.Headers)+4)
	headers.Add("Host", request.HostHeader())
	headers.Add("Connection", "close")

	for _, f := range request.Headers {
		switch {
		case strings.EqualFold(f.Name, "Host"),
			strings.EqualFold(f.Name, "Connection"),
			strings.EqualFold(f.Name, "Content-Length"):
			// Synthesized.
			continue
		}
		headers = append(headers, f)
	}

	if !request.HasBody() {
		return headers
	}

	if body.ContentType != "" && !request.Headers.Has("Content-Type") {
		headers.Add("Content-Type", body.ContentType)
	}
	headers.Add("Content-Length", strconv.Itoa(len(body.Text)))

	return headers
}

// BuildRequest returns the exact text of request on the wire.
func BuildRequest(request *Request, body EncodedBody) string {
	b := new(strings.Builder)

	// Writing into strings.Builder never fails.
	_ = NewRequestEncoder(b).Encode(request, body)

	return b.String()
}
