package http

import (
	"strings"

	"grabber/application/util/rule"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultBoundary is the fixed multipart boundary.
// It can't be used for a body that contains it; see [ErrBoundaryCollision].
const DefaultBoundary = "GrabberBoundary"

var ErrBoundaryCollision = errors.New("multipart body contains its boundary")

// RandomBoundary returns a boundary unlikely to appear in any body.
func RandomBoundary() string {
	id := uuid.New()
	return DefaultBoundary + strings.ReplaceAll(id.String(), "-", "")
}

func multipartContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

// Reference: https://datatracker.ietf.org/doc/html/rfc7578#section-4
func encodeMultipart(parts []Part, boundary string) (string, error) {
	delim := "--" + boundary

	b := new(strings.Builder)
	for _, part := range parts {
		b.WriteString(delim)
		b.WriteString(rule.CRLFString)

		var content string
		switch p := part.(type) {
		case TextField:
			b.WriteString(`Content-Disposition: form-data; name="` + quote(p.Name) + `"`)
			b.WriteString(rule.CRLFString)
			content = p.Value
		case FileField:
			if strings.Contains(p.Filename, boundary) {
				return "", errors.Wrapf(ErrBoundaryCollision, "filename of field %q", p.Name)
			}

			contentType := p.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			b.WriteString(`Content-Disposition: form-data; name="` + quote(p.Name) + `"; filename="` + quote(p.Filename) + `"`)
			b.WriteString(rule.CRLFString)
			b.WriteString("Content-Type: " + contentType)
			b.WriteString(rule.CRLFString)
			content = string(p.Content)
		default:
			return "", errors.Errorf("unknown multipart part: %T", part)
		}

		if strings.Contains(part.partName(), boundary) || strings.Contains(content, boundary) {
			return "", errors.Wrapf(ErrBoundaryCollision, "field %q", part.partName())
		}

		b.WriteString(rule.CRLFString)
		b.WriteString(content)
		b.WriteString(rule.CRLFString)
	}

	b.WriteString(delim + "--")
	b.WriteString(rule.CRLFString)

	return b.String(), nil
}

// quote escapes a name or filename for a quoted Content-Disposition parameter.
// Reference: https://html.spec.whatwg.org/multipage/form-control-infrastructure.html#multipart-form-data
var quote = strings.NewReplacer(`"`, "%22", "\r", "%0D", "\n", "%0A").Replace
