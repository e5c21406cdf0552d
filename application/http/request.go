package http

import (
	"strings"

	"grabber/application/util/rule"
	"grabber/application/util/uri"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
)

const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

var (
	ErrNotAbsoluteURL    = errors.New("URL is not absolute")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrInvalidPort       = errors.New("port must be in range 1-65535")
	ErrInvalidMethod     = errors.New("method is not a valid token")
)

// DefaultPort returns the port used when URL doesn't have one.
func DefaultPort(scheme string) uint16 {
	if scheme == SchemeHTTPS {
		return 443
	}
	return 80
}

// Request describes a single request to be put on the wire.
type Request struct {
	Method string
	Scheme string

	// Host is in its ASCII form. IPv6 literal has no brackets.
	Host string
	Port uint16

	// Path is escaped.
	Path     string
	Query    uri.Values
	Fragment string

	Headers Headers

	// Body is ignored for GET.
	Body Body
}

// RequestInit holds the optional parts of a request.
type RequestInit struct {
	Method  string
	Headers Headers
	Body    Body
}

// NewRequest creates a request for rawURL.
// init may be nil, which means a GET without extra headers.
func NewRequest(rawURL string, init *RequestInit) (*Request, error) {
	parsed, err := uri.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing URL %q", rawURL)
	}

	if !parsed.IsAbsolute() {
		return nil, errors.Wrap(ErrNotAbsoluteURL, rawURL)
	}

	if init == nil {
		init = &RequestInit{}
	}

	req := &Request{
		Method:   init.Method,
		Scheme:   parsed.Scheme,
		Host:     parsed.Authority.Host,
		Path:     parsed.Path,
		Query:    parsed.Query,
		Fragment: parsed.Fragment,
		Headers:  init.Headers.Clone(),
	}

	if req.Method == "" {
		req.Method = MethodGet
	}

	if parsed.Authority.Port != nil {
		req.Port = *parsed.Authority.Port
	} else {
		req.Port = DefaultPort(req.Scheme)
	}

	if req.Method != MethodGet {
		req.Body = init.Body
	}

	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating request")
	}

	return req, nil
}

// Validate reports every problem of r at once.
func (r *Request) Validate() error {
	var err error

	if r.Scheme != SchemeHTTP && r.Scheme != SchemeHTTPS {
		err = multierr.Append(err, errors.Wrap(ErrUnsupportedScheme, r.Scheme))
	}
	if r.Host == "" {
		err = multierr.Append(err, errors.New("host is empty"))
	}
	if r.Port == 0 {
		err = multierr.Append(err, ErrInvalidPort)
	}
	if !rule.IsValidToken(r.Method) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidMethod, "%q", r.Method))
	}
	if strings.ContainsAny(r.Target(), " \r\n") {
		err = multierr.Append(err, errors.New("request target contains whitespace"))
	}

	return multierr.Append(err, r.Headers.Validate())
}

// Target is the request-target of the request line:
// the path followed by the query and the fragment if present.
func (r *Request) Target() string {
	u := uri.URI{Path: r.Path, Query: r.Query, Fragment: r.Fragment}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.Target()
}

// HostHeader is the value of the synthesized Host field.
// The port is omitted when it is unset or the default one for the scheme.
func (r *Request) HostHeader() string {
	a := uri.Authority{Host: r.Host}
	if r.Port != 0 && r.Port != DefaultPort(r.Scheme) {
		port := r.Port
		a.Port = &port
	}
	return a.HostPort()
}

// HasBody reports whether a body goes on the wire for r.
func (r *Request) HasBody() bool { return r.Method != MethodGet }
