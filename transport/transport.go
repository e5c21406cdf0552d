package transport

import (
	"net"
	"strconv"
)

type Protocol string

const (
	TCP Protocol = "tcp"
	TLS Protocol = "tls" // TCP with TLS on top.
)

// Addr is the address of an endpoint. Host is either a domain name or an IP
// literal without brackets.
type Addr struct {
	Protocol Protocol
	Host     string
	Port     uint16
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}
