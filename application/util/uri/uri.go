package uri

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

// URI is a parsed URL.
// Path and Fragment hold their escaped form, ready to be put on a request line.
type URI struct {
	Scheme    string
	Authority *Authority
	Path      string
	Query     Values
	Fragment  string
}

type Authority struct {
	UserInfo string

	// Host is lower-cased and converted into its ASCII(punycode) form.
	// IPv6 literals are stored without brackets.
	Host string

	// NOTE: Port can be digits of any length. But practically it is in range of 0 ~ 65535.
	// Reference: datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
	Port *uint16
}

// HostPort returns host and port joined for an authority component.
func (a Authority) HostPort() string {
	host := a.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if a.Port == nil {
		return host
	}
	return host + ":" + strconv.FormatUint(uint64(*a.Port), 10)
}

// IsAbsolute reports whether the URI has both scheme and authority.
func (u *URI) IsAbsolute() bool {
	return u.Scheme != "" && u.Authority != nil
}

// Target returns the path followed by the query and fragment, if present.
func (u *URI) Target() string {
	b := new(strings.Builder)
	b.WriteString(u.Path)

	if len(u.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(u.Query.Encode())
	}

	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}

	return b.String()
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.3
func (u *URI) String() string {
	b := new(strings.Builder)
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}

	if u.Authority != nil {
		b.WriteString("//")
		if u.Authority.UserInfo != "" {
			b.WriteString(escape(u.Authority.UserInfo, encodeUserInfo))
			b.WriteByte('@')
		}
		b.WriteString(u.Authority.HostPort())
	}

	b.WriteString(u.Target())

	return b.String()
}

// Parse parses rawURL.
// Unlike a strict RFC 3986 parser, it escapes characters not allowed on
// path and fragment instead of rejecting them, the way browsers do.
func Parse(rawURL string) (URI, error) {
	rawURL = strings.TrimSpace(rawURL)
	if containsCTL(rawURL) {
		return URI{}, errors.New("URI should not contain CTL bytes")
	}

	var uri URI

	scheme, rest, err := cutScheme(rawURL)
	if err != nil {
		return URI{}, errors.Wrap(err, "getting scheme")
	}
	// Scheme is recommended to be lowercase.
	uri.Scheme = strings.ToLower(scheme)

	if strings.HasPrefix(rest, "//") {
		var authorityRaw string
		authorityRaw, rest = rest[2:], ""
		if i := strings.IndexAny(authorityRaw, "/?#"); i >= 0 {
			authorityRaw, rest = authorityRaw[:i], authorityRaw[i:]
		}

		authority, err := parseAuthority(authorityRaw)
		if err != nil {
			return URI{}, errors.Wrap(err, "parsing authority")
		}

		uri.Authority = &authority
	}

	path, query, frag := splitPathQueryFrag(rest)

	if uri.Authority != nil && path == "" {
		path = "/"
	}
	uri.Path = removeDotSegments(escapeKeepEncoded(path, encodePath))
	if uri.Authority != nil && uri.Path == "" {
		uri.Path = "/"
	}

	if len(query) > 1 {
		// Strip '?' from query.
		if uri.Query, err = ParseQuery(query[1:]); err != nil {
			return URI{}, errors.Wrap(err, "parsing query")
		}
	}

	if len(frag) > 1 {
		// Strip '#' from fragment.
		uri.Fragment = escapeKeepEncoded(frag[1:], encodeFragment)
	}

	return uri, nil
}

// cutScheme cuts scheme from rawURL. If scheme is not valid, it returns an error.
func cutScheme(rawURL string) (scheme, rest string, err error) {
	before, after, found := strings.Cut(rawURL, ":")
	if !found || strings.ContainsAny(before, "/?#") {
		// If seperator is not found, scheme doesn't exist.
		return "", rawURL, nil
	}

	scheme, rest = before, after
	if err := assertValidScheme(scheme); err != nil {
		return "", "", err
	}

	return scheme, rest, nil
}

func parseAuthority(raw string) (authority Authority, err error) {
	var userInfo, host string
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		userInfo, host = raw[:i], raw[i+1:]
	} else {
		host = raw
	}

	if userInfo != "" {
		if !isValidUserInfo(userInfo) {
			return Authority{}, errors.New("user information is not valid")
		}
		authority.UserInfo, err = unescape(userInfo, encodeUserInfo)
		if err != nil {
			return Authority{}, errors.Wrap(err, "unescaping user information")
		}
	}

	host, portPart, err := getHostPort(host)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing host")
	}

	port, hasPort, err := parsePort(portPart)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing port")
	}

	if hasPort {
		authority.Port = &port
	}

	if authority.Host, err = normalizeHost(host); err != nil {
		return Authority{}, errors.Wrap(err, "normalizing host")
	}

	return authority, nil
}

func getHostPort(raw string) (host string, portPart string, err error) {
	if strings.HasPrefix(raw, "[") {
		// This is IP Literal.
		idx := strings.LastIndex(raw, "]")
		if idx < 0 {
			return "", "", errors.New("missing ']' in IP Literal")
		}

		host = raw[:idx+1]
		portPart = raw[idx+1:]
	} else {
		// ipv4 or reg-name.
		host = raw
		if idx := strings.LastIndex(raw, ":"); idx >= 0 {
			host = raw[:idx]
			portPart = raw[idx:]
		}
	}

	if host == "" {
		return "", "", errors.New("host is empty")
	}

	return host, portPart, nil
}

// normalizeHost validates host and returns the form used on the wire.
func normalizeHost(host string) (string, error) {
	first, last := 0, len(host)-1
	if host[first] == '[' && host[last] == ']' {
		addr, err := netip.ParseAddr(host[first+1 : last])
		if err != nil || !addr.Is6() {
			return "", errors.New("host is expected to be IP Literal, but was malformed")
		}
		return addr.String(), nil
	}

	unescaped, err := unescape(host, encodeHost)
	if err != nil {
		return "", errors.Wrap(err, "unescaping host")
	}

	if addr, err := netip.ParseAddr(unescaped); err == nil && addr.Is4() {
		return addr.String(), nil
	}

	if isASCII(unescaped) {
		if len(unescaped) > 255 {
			// Length is limited to 255.
			return "", errors.Errorf("host length exceeds limit(255): %d", len(unescaped))
		}
		if !isValidRegName(unescaped) {
			return "", errors.Errorf("host is neither ip addr nor valid reg-name: %q", unescaped)
		}
		return strings.ToLower(unescaped), nil
	}

	ascii, err := idna.Lookup.ToASCII(unescaped)
	if err != nil {
		return "", errors.Wrapf(err, "converting %q into punycode", unescaped)
	}

	return ascii, nil
}

// This is not the same rule as RFC. See [Authority].
func parsePort(s string) (port uint16, hasPort bool, err error) {
	if s == "" || s == ":" {
		// Empty port is same as no port.
		// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
		return 0, false, nil
	}

	if s[0] != ':' {
		return 0, false, errors.New("colon delimiter not found on port")
	}

	s = s[1:]

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to parse uint")
	}

	return uint16(n), true, nil
}

func splitPathQueryFrag(raw string) (path, query, frag string) {
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		frag = raw[idx:]
		raw = raw[:idx]
	}

	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		query = raw[idx:]
		raw = raw[:idx]
	}

	path = raw
	return
}
