package http

import (
	"strconv"
	"strings"

	"grabber/application/util/rule"

	"github.com/pkg/errors"
)

var (
	ErrMalformedStatusLine     = errors.New("status line is malformed")
	ErrMalformedFieldLine      = errors.New("field line is malformed")
	ErrMissingHeaderTerminator = errors.New("empty line after header not found")
)

// ParseResponse parses the whole text of a response.
// It never fails: a defect degrades the affected fields to their zero values
// and is reported on [Response.Malformed]. Only the first defect is kept.
func ParseResponse(raw string) Response {
	var res Response

	lines := strings.Split(raw, rule.CRLFString)

	statLine, err := parseStatusLine(lines[0])
	if err != nil {
		res.Malformed = errors.Wrap(ErrMalformedStatusLine, err.Error())
	}
	res.statusLine = statLine

	rest := lines[1:]
	terminated := false
	for i, line := range rest {
		if line == "" {
			// An empty line. This means that there are no more headers.
			res.Body = strings.Join(rest[i+1:], rule.CRLFString)
			terminated = true
			break
		}

		field, err := ParseField(line)
		if err != nil {
			if res.Malformed == nil {
				res.Malformed = errors.Wrap(ErrMalformedFieldLine, err.Error())
			}
			continue
		}

		res.Headers = append(res.Headers, field)
	}

	if !terminated && res.Malformed == nil {
		res.Malformed = ErrMissingHeaderTerminator
	}

	return res
}

// parseStatusLine only consumes the first two tokens positionally.
// The rest of the line, spaces included, is the status text.
func parseStatusLine(line string) (statusLine, error) {
	parts := strings.SplitN(line, string(rule.SP), 3)
	if len(parts) < 2 {
		return statusLine{}, errors.Errorf("too few tokens: %q", line)
	}

	var statLine statusLine
	if len(parts) == 3 {
		// reason-phrase is optional.
		statLine.StatusText = parts[2]
	}

	// The code does not depend on the version, so both are always tried.
	var verErr error
	ver, err := ParseVersion([]byte(parts[0]))
	if err != nil {
		verErr = errors.Wrap(err, "parsing version")
	} else {
		statLine.Version = ver
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 3 {
		return statLine, errors.Errorf("status code is malformed: %q", parts[1])
	}
	statLine.StatusCode = code

	return statLine, verErr
}
