// Package security vets result URLs before the browser is sent to them.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"websift/internal/domain"
)

// privateRanges lists the private and reserved blocks a result page may not
// point into.
var privateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var parsedRanges []*net.IPNet

func init() {
	for _, cidr := range privateRanges {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		parsedRanges = append(parsedRanges, ipnet)
	}
}

// URLGuard rejects URLs that are not http(s) or whose host is, or resolves
// to, a private address.
type URLGuard struct {
	lookup func(host string) ([]net.IP, error)
}

// NewURLGuard creates a guard that resolves hosts through the system
// resolver.
func NewURLGuard() *URLGuard {
	return &URLGuard{lookup: net.LookupIP}
}

// Check returns an error wrapping domain.ErrURLBlocked when rawURL may not
// be visited.
func (g *URLGuard) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked, fmt.Sprintf("invalid URL: %v", err))
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked, "missing URL scheme, only http/https allowed")
	default:
		return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked,
			fmt.Sprintf("scheme %q not allowed, only http/https", u.Scheme))
	}

	host := u.Hostname()
	if host == "" {
		return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked, "empty hostname")
	}

	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked,
				fmt.Sprintf("IP %s is private/reserved", ip))
		}
		return nil
	}

	ips, err := g.lookup(host)
	if err != nil {
		return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked,
			fmt.Sprintf("DNS lookup failed: %v", err))
	}
	for _, ip := range ips {
		if IsPrivateIP(ip) {
			return domain.NewDomainError("URLGuard.Check", domain.ErrURLBlocked,
				fmt.Sprintf("host %s resolves to private IP %s", host, ip))
		}
	}
	return nil
}

// ValidateURL checks rawURL with a guard backed by the system resolver.
func ValidateURL(rawURL string) error {
	return NewURLGuard().Check(rawURL)
}

// IsPrivateIP checks if an IP falls within any private/reserved range.
func IsPrivateIP(ip net.IP) bool {
	// IPv4-mapped IPv6 addresses are matched as IPv4.
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, ipnet := range parsedRanges {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}
