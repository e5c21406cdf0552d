package http

import (
	"encoding/json"
	"mime"
	"strconv"
	"strings"

	"grabber/application/http/status"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

type statusLine struct {
	Version    Version
	StatusCode int
	StatusText string
}

// Response is a parsed response. It is not modified after [ParseResponse] returns.
type Response struct {
	statusLine
	Headers Headers
	Body    string

	// Malformed is nil when the response parsed cleanly.
	// Otherwise it wraps one of ErrMalformedStatusLine, ErrMalformedFieldLine
	// or ErrMissingHeaderTerminator.
	Malformed error
}

func (r *Response) Valid() bool { return r.Malformed == nil }

// OK reports whether the status code is in range 200-299.
func (r *Response) OK() bool { return 200 <= r.StatusCode && r.StatusCode <= 299 }

// Status returns the status of the response. The registered reason phrase
// is used when the server sent none.
func (r *Response) Status() status.Status {
	if r.StatusText != "" {
		return status.Status{Code: r.StatusCode, ReasonPhrase: r.StatusText}
	}
	s, _ := status.FromCode(r.StatusCode)
	return s
}

// Err returns a [status.Error] if the status code is not 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return status.NewError(r.StatusCode, r.StatusText)
}

// ContentLength returns the first Content-Length field, if it is a valid number.
func (r *Response) ContentLength() (int, bool) {
	v, ok := r.Headers.Get("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Text returns the body decoded into UTF-8, according to the charset
// parameter of Content-Type. Body is returned as is without a known charset.
func (r *Response) Text() (string, error) {
	contentType, _ := r.Headers.Get("Content-Type")
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r.Body, nil
	}

	label, ok := params["charset"]
	if !ok {
		return r.Body, nil
	}

	enc, name := charset.Lookup(label)
	if enc == nil {
		// Not a label of the WHATWG Encoding Standard. Try IANA MIME names.
		mimeEnc, err := ianaindex.MIME.Encoding(label)
		if err != nil || mimeEnc == nil {
			return "", errors.Errorf("unknown charset: %q", label)
		}
		enc, name = mimeEnc, strings.ToLower(label)
	}
	if name == "utf-8" {
		return r.Body, nil
	}

	text, _, err := transform.String(enc.NewDecoder(), r.Body)
	if err != nil {
		return "", errors.Wrapf(err, "decoding body from %s", name)
	}

	return text, nil
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	text, err := r.Text()
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(text), v); err != nil {
		return errors.Wrap(err, "decoding JSON body")
	}

	return nil
}
