package client

import (
	"strconv"
	"strings"

	"grabber/application/util/rule"
)

const headerTerminator = rule.CRLFString + rule.CRLFString

// isComplete reports whether raw already holds the whole response.
// Some TLS peers close without notifying, which surfaces as a read error
// after every byte has arrived. The response counts as complete when the
// bytes after the header block match the declared Content-Length.
func isComplete(raw []byte) bool {
	head, body, found := strings.Cut(string(raw), headerTerminator)
	if !found {
		return false
	}

	return len(body) == declaredContentLength(head)
}

// declaredContentLength returns the first Content-Length of the header block.
// A missing or unparsable value counts as 0.
func declaredContentLength(head string) int {
	lines := strings.Split(head, rule.CRLFString)
	if len(lines) > 0 {
		// Skip status line.
		lines = lines[1:]
	}

	for _, line := range lines {
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(name, "Content-Length") {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}

	return 0
}
