// Package uri parses the absolute URLs handed to the client and
// serializes their query component.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
//
// - https://url.spec.whatwg.org/#application/x-www-form-urlencoded
package uri
