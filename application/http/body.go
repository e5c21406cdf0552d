package http

import (
	"bytes"
	"io"
	"strings"

	"grabber/application/util/uri"

	"github.com/pkg/errors"
)

type BodyKind uint8

const (
	KindEmpty BodyKind = iota
	KindText
	KindBinary
	KindForm
	KindMultipart
	KindStream
)

func (k BodyKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindForm:
		return "form"
	case KindMultipart:
		return "multipart"
	case KindStream:
		return "stream"
	}
	return "unknown"
}

// Body is a request body of exactly one [BodyKind].
// The zero value is an empty body.
type Body struct {
	kind BodyKind

	text   string
	binary []byte
	form   uri.Values
	parts  []Part
	stream *stream
}

type stream struct {
	r        io.Reader
	consumed bool
}

func EmptyBody() Body           { return Body{} }
func TextBody(text string) Body { return Body{kind: KindText, text: text} }

// BinaryBody sends b as is. The pipeline is text oriented and never
// interprets the bytes; they are copied verbatim on to the wire.
func BinaryBody(b []byte) Body { return Body{kind: KindBinary, binary: bytes.Clone(b)} }

// FormBody sends values as application/x-www-form-urlencoded.
func FormBody(values uri.Values) Body {
	return Body{kind: KindForm, form: append(uri.Values(nil), values...)}
}

// MultipartBody sends parts as multipart/form-data.
func MultipartBody(parts ...Part) Body {
	return Body{kind: KindMultipart, parts: append([]Part(nil), parts...)}
}

// StreamBody sends everything read from r until EOF.
// r is drained once; encoding the same body again fails with [ErrStreamConsumed].
func StreamBody(r io.Reader) Body {
	return Body{kind: KindStream, stream: &stream{r: r}}
}

func (b Body) Kind() BodyKind { return b.kind }

// Part is a field of a multipart body. It is either [TextField] or [FileField].
type Part interface{ partName() string }

type TextField struct{ Name, Value string }

type FileField struct {
	Name        string
	Filename    string
	ContentType string // application/octet-stream if empty.
	Content     []byte
}

func (f TextField) partName() string { return f.Name }
func (f FileField) partName() string { return f.Name }

// EncodedBody is a body serialized for the wire.
type EncodedBody struct {
	Text          string
	ContentType   string // Empty if the body kind implies none.
	ContentLength int    // Always len(Text).
}

type EncodeOptions struct {
	// Boundary delimits multipart bodies. [DefaultBoundary] if empty.
	Boundary string
}

var DefaultEncodeOptions = EncodeOptions{
	Boundary: DefaultBoundary,
}

const ContentTypeForm = "application/x-www-form-urlencoded"

var ErrStreamConsumed = errors.New("stream body has already been consumed")

// EncodeBody serializes body. It only blocks when body is a stream,
// until the stream is fully drained.
func EncodeBody(body Body, opts EncodeOptions) (EncodedBody, error) {
	var (
		text        string
		contentType string
	)

	switch body.kind {
	case KindEmpty:
	case KindText:
		text = body.text
	case KindBinary:
		text = string(body.binary)
	case KindForm:
		text = body.form.Encode()
		contentType = ContentTypeForm
	case KindMultipart:
		boundary := opts.Boundary
		if boundary == "" {
			boundary = DefaultBoundary
		}

		encoded, err := encodeMultipart(body.parts, boundary)
		if err != nil {
			return EncodedBody{}, errors.Wrap(err, "encoding multipart body")
		}
		text = encoded
		contentType = multipartContentType(boundary)
	case KindStream:
		drained, err := drain(body.stream)
		if err != nil {
			return EncodedBody{}, errors.Wrap(err, "draining stream body")
		}
		text = drained
	default:
		return EncodedBody{}, errors.Errorf("unknown body kind: %d", body.kind)
	}

	return EncodedBody{
		Text:          text,
		ContentType:   contentType,
		ContentLength: len(text),
	}, nil
}

func drain(s *stream) (string, error) {
	if s.consumed {
		return "", ErrStreamConsumed
	}
	s.consumed = true

	b := new(strings.Builder)
	if _, err := io.Copy(b, s.r); err != nil {
		return "", err
	}

	return b.String(), nil
}
