package http

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"grabber/application/util/uri"

	"github.com/stretchr/testify/suite"
)

type RequestEncoderTestSuite struct {
	suite.Suite
}

func TestRequestEncoderTestSuite(t *testing.T) {
	suite.Run(t, new(RequestEncoderTestSuite))
}

func (s *RequestEncoderTestSuite) TestWriteLine() {
	var buf bytes.Buffer
	re := RequestEncoder{bw: bufio.NewWriter(&buf)}

	s.NoError(re.writeLine([]byte("Hello")))
	s.NoError(re.bw.Flush())

	s.Equal("Hello\r\n", buf.String())
}

func (s *RequestEncoderTestSuite) TestEncodeHeaders() {
	testcases := []struct {
		desc     string
		headers  Headers
		expected string
	}{
		{
			desc: "simple headers with CRLF",
			headers: Headers{
				{"Host", "example.com"},
			},
			expected: "" +
				"Host: example.com\r\n" +
				"\r\n",
		},
		{
			desc:     "empty headers",
			headers:  Headers{},
			expected: "\r\n",
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var buf bytes.Buffer
			re := RequestEncoder{bw: bufio.NewWriter(&buf)}

			s.NoError(re.encodeHeaders(tc.headers))
			s.NoError(re.bw.Flush())

			s.Equal(tc.expected, buf.String())
		})
	}
}

func (s *RequestEncoderTestSuite) TestEncodeRequestLine() {
	buf := bytes.NewBuffer(nil)
	re := NewRequestEncoder(buf)

	s.NoError(re.encodeRequestLine("GET", "/example"))
	s.NoError(re.bw.Flush())

	s.Equal("GET /example HTTP/1.1\r\n", buf.String())
}

func (s *RequestEncoderTestSuite) TestBuildRequest() {
	testcases := []struct {
		desc     string
		request  Request
		body     Body
		expected string
	}{
		{
			desc: "GET with query",
			request: Request{
				Method: MethodGet,
				Scheme: SchemeHTTP,
				Host:   "example.com",
				Port:   80,
				Path:   "/get",
				Query:  uri.Values{{Key: "a", Value: "1"}},
			},
			expected: "GET /get?a=1 HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n\r\n",
		},
		{
			desc: "GET with fragment and non-default port",
			request: Request{
				Method:   MethodGet,
				Scheme:   SchemeHTTPS,
				Host:     "example.com",
				Port:     8443,
				Path:     "/get",
				Fragment: "test",
			},
			expected: "" +
				"GET /get#test HTTP/1.1\r\n" +
				"Host: example.com:8443\r\n" +
				"Connection: close\r\n" +
				"\r\n" +
				"\r\n",
		},
		{
			desc: "GET ignores body",
			request: Request{
				Method: MethodGet,
				Scheme: SchemeHTTP,
				Host:   "example.com",
				Port:   80,
				Path:   "/",
			},
			body: TextBody("ignored"),
			expected: "" +
				"GET / HTTP/1.1\r\n" +
				"Host: example.com\r\n" +
				"Connection: close\r\n" +
				"\r\n" +
				"\r\n",
		},
		{
			desc: "POST with text body",
			request: Request{
				Method:  MethodPost,
				Scheme:  SchemeHTTP,
				Host:    "example.com",
				Port:    80,
				Path:    "/post",
				Headers: Headers{{"Content-Type", "application/json"}},
			},
			body: TextBody(`{"test":"value"}`),
			expected: "" +
				"POST /post HTTP/1.1\r\n" +
				"Host: example.com\r\n" +
				"Connection: close\r\n" +
				"Content-Type: application/json\r\n" +
				"Content-Length: 16\r\n" +
				"\r\n" +
				`{"test":"value"}` + "\r\n",
		},
		{
			desc: "DELETE with empty body sends zero length",
			request: Request{
				Method: MethodDelete,
				Scheme: SchemeHTTP,
				Host:   "example.com",
				Port:   80,
				Path:   "/delete",
			},
			expected: "" +
				"DELETE /delete HTTP/1.1\r\n" +
				"Host: example.com\r\n" +
				"Connection: close\r\n" +
				"Content-Length: 0\r\n" +
				"\r\n" +
				"\r\n",
		},
		{
			desc: "form body content type",
			request: Request{
				Method: MethodPost,
				Scheme: SchemeHTTP,
				Host:   "example.com",
				Port:   80,
				Path:   "/post",
			},
			body: FormBody(uri.Values{{Key: "test", Value: "value"}}),
			expected: "" +
				"POST /post HTTP/1.1\r\n" +
				"Host: example.com\r\n" +
				"Connection: close\r\n" +
				"Content-Type: application/x-www-form-urlencoded\r\n" +
				"Content-Length: 10\r\n" +
				"\r\n" +
				"test=value\r\n",
		},
		{
			desc: "synthesized fields are not duplicated",
			request: Request{
				Method: MethodPut,
				Scheme: SchemeHTTP,
				Host:   "example.com",
				Port:   80,
				Path:   "/put",
				Headers: Headers{
					{"host", "evil.com"},
					{"X-A", "1"},
					{"connection", "keep-alive"},
					{"Content-Length", "999"},
				},
			},
			body: TextBody("hi"),
			expected: "" +
				"PUT /put HTTP/1.1\r\n" +
				"Host: example.com\r\n" +
				"Connection: close\r\n" +
				"X-A: 1\r\n" +
				"Content-Length: 2\r\n" +
				"\r\n" +
				"hi\r\n",
		},
		{
			desc: "ipv6 host",
			request: Request{
				Method: MethodGet,
				Scheme: SchemeHTTP,
				Host:   "::1",
				Port:   8080,
				Path:   "/",
			},
			expected: "GET / HTTP/1.1\r\nHost: [::1]:8080\r\nConnection: close\r\n\r\n\r\n",
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			encoded, err := EncodeBody(tc.body, DefaultEncodeOptions)
			s.Require().NoError(err)

			tc.request.Body = tc.body
			s.Equal(tc.expected, BuildRequest(&tc.request, encoded))
		})
	}
}

func (s *RequestEncoderTestSuite) TestHeaderOrderPreserved() {
	request := Request{
		Method:  MethodGet,
		Scheme:  SchemeHTTP,
		Host:    "example.com",
		Port:    80,
		Path:    "/",
		Headers: Headers{{"C", "3"}, {"A", "1"}, {"B", "2"}, {"A", "4"}},
	}

	text := BuildRequest(&request, EncodedBody{})

	c := strings.Index(text, "C: 3\r\n")
	a := strings.Index(text, "A: 1\r\n")
	b := strings.Index(text, "B: 2\r\n")
	a2 := strings.Index(text, "A: 4\r\n")
	s.True(0 < c && c < a && a < b && b < a2, text)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errWrite }

func (s *RequestEncoderTestSuite) TestEncodeWriterError() {
	request := Request{Method: MethodGet, Scheme: SchemeHTTP, Host: "example.com", Port: 80, Path: "/"}

	err := NewRequestEncoder(failingWriter{}).Encode(&request, EncodedBody{})
	s.ErrorIs(err, errWrite)
}
