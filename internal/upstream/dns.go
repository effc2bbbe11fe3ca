package upstream

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
)

const (
	// DefaultDNSServer is queried when DNSConfig.Server is empty.
	DefaultDNSServer = "1.1.1.1:53"

	// DefaultDNSTimeout bounds a single exchange with the server.
	DefaultDNSTimeout = 2 * time.Second
)

// DNSConfig configures a DNS resolver.
type DNSConfig struct {
	// Server is the host:port of the recursive server to query.
	Server string

	// Net is "udp" (default), "tcp" or "tcp-tls".
	Net string

	// Timeout bounds each exchange. Zero selects DefaultDNSTimeout.
	Timeout time.Duration

	// IPv6 queries AAAA instead of A records.
	IPv6 bool
}

// DNS resolves a key, taken as a host name, to the first address record
// returned by a single configured server.
type DNS struct {
	client *dns.Client
	server string
	qtype  uint16
}

// NewDNS returns a DNS resolver for cfg.
func NewDNS(cfg DNSConfig) *DNS {
	server := cfg.Server
	if server == "" {
		server = DefaultDNSServer
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultDNSTimeout
	}

	qtype := dns.TypeA
	if cfg.IPv6 {
		qtype = dns.TypeAAAA
	}

	return &DNS{
		client: &dns.Client{
			Net:     cfg.Net,
			Timeout: timeout,
		},
		server: server,
		qtype:  qtype,
	}
}

// ResolveUpstream implements cache.Resolver.
func (d *DNS) ResolveUpstream(key string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(key), d.qtype)
	msg.RecursionDesired = true

	resp, rtt, err := d.client.Exchange(msg, d.server)
	if err != nil {
		return "", fmt.Errorf("query %s %s via %s: %w", key,
			dns.TypeToString[d.qtype], d.server, err)
	}

	log.Tracef("DNS %s %s answered in %v with %d records", key,
		dns.TypeToString[d.qtype], rtt, len(resp.Answer))

	switch resp.Rcode {
	case dns.RcodeSuccess:

	case dns.RcodeNameError:
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)

	default:
		return "", fmt.Errorf("query %s: server returned %s", key,
			dns.RcodeToString[resp.Rcode])
	}

	// Answers may lead with CNAMEs; take the first record of the type we
	// asked for.
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			if d.qtype == dns.TypeA {
				return rec.A.String(), nil
			}

		case *dns.AAAA:
			if d.qtype == dns.TypeAAAA {
				return rec.AAAA.String(), nil
			}
		}
	}

	return "", fmt.Errorf("%s %s: %w", key, dns.TypeToString[d.qtype],
		ErrNotFound)
}
