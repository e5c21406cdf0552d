// Package http implements the HTTP/1.1 message text of a single
// request/response exchange: request bodies, the request text and the
// parsing of the response text.
//
// Every message is self-contained. Requests always carry "Connection: close",
// requests other than GET always declare Content-Length, and no transfer
// coding is applied in either direction.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
//
// - https://datatracker.ietf.org/doc/html/rfc7578
package http
