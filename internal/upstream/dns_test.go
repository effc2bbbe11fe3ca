package upstream

import (
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// zone maps a fully qualified name to the records served for it.
type zone map[string][]dns.RR

// startTestServer runs a UDP DNS server on a loopback port that answers from
// z, replies SERVFAIL for "broken." and NXDOMAIN for anything else.
func startTestServer(t *testing.T, z zone) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)

		name := req.Question[0].Name
		switch {
		case name == "broken.":
			resp.Rcode = dns.RcodeServerFailure

		case z[name] != nil:
			resp.Answer = z[name]

		default:
			resp.Rcode = dns.RcodeNameError
		}

		_ = w.WriteMsg(resp)
	})

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}

	go func() {
		_ = server.ActivateAndServe()
	}()
	<-started

	t.Cleanup(func() {
		_ = server.Shutdown()
	})

	return pc.LocalAddr().String()
}

func aRecord(name, ip string) dns.RR {
	return &dns.A{
		Hdr: dns.RR_Header{
			Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET,
			Ttl: 60,
		},
		A: net.ParseIP(ip),
	}
}

func aaaaRecord(name, ip string) dns.RR {
	return &dns.AAAA{
		Hdr: dns.RR_Header{
			Name: name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET,
			Ttl: 60,
		},
		AAAA: net.ParseIP(ip),
	}
}

func TestDNSResolve(t *testing.T) {
	t.Parallel()

	cname := &dns.CNAME{
		Hdr: dns.RR_Header{
			Name: "www.example.com.", Rrtype: dns.TypeCNAME,
			Class: dns.ClassINET, Ttl: 60,
		},
		Target: "example.com.",
	}

	addr := startTestServer(t, zone{
		"example.com.": {aRecord("example.com.", "93.184.216.34")},
		"www.example.com.": {
			cname, aRecord("example.com.", "93.184.216.34"),
		},
		"v6.example.com.": {
			aaaaRecord("v6.example.com.", "2001:db8::1"),
		},
	})

	r := NewDNS(DNSConfig{Server: addr, Timeout: time.Second})

	tests := []struct {
		name     string
		key      string
		want     string
		notFound bool
		wantErr  bool
	}{
		{name: "a record", key: "example.com", want: "93.184.216.34"},
		{
			name: "already fully qualified", key: "example.com.",
			want: "93.184.216.34",
		},
		{
			name: "cname chain", key: "www.example.com",
			want: "93.184.216.34",
		},
		{name: "nxdomain", key: "missing.example.com", notFound: true},
		{
			name: "no record of the asked type",
			key:  "v6.example.com", notFound: true,
		},
		{name: "server failure", key: "broken", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := r.ResolveUpstream(test.key)

			switch {
			case test.notFound:
				require.ErrorIs(t, err, ErrNotFound)

			case test.wantErr:
				require.Error(t, err)
				require.NotErrorIs(t, err, ErrNotFound)
				require.Contains(t, err.Error(), "SERVFAIL")

			default:
				require.NoError(t, err)
				require.Equal(t, test.want, got)
			}
		})
	}
}

func TestDNSResolveIPv6(t *testing.T) {
	t.Parallel()

	addr := startTestServer(t, zone{
		"v6.example.com.": {
			aaaaRecord("v6.example.com.", "2001:db8::1"),
		},
	})

	r := NewDNS(DNSConfig{Server: addr, IPv6: true})

	got, err := r.ResolveUpstream("v6.example.com")
	require.NoError(t, err)
	require.Equal(t, "2001:db8::1", got)
}

// TestDNSResolveTimeout asserts that an unresponsive server surfaces as an
// error instead of hanging.
func TestDNSResolveTimeout(t *testing.T) {
	t.Parallel()

	// A bound socket nobody reads from.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	r := NewDNS(DNSConfig{
		Server:  pc.LocalAddr().String(),
		Timeout: 50 * time.Millisecond,
	})

	_, err = r.ResolveUpstream("example.com")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestNewDNSDefaults(t *testing.T) {
	t.Parallel()

	r := NewDNS(DNSConfig{})
	require.Equal(t, DefaultDNSServer, r.server)
	require.Equal(t, DefaultDNSTimeout, r.client.Timeout)
	require.Equal(t, dns.TypeA, r.qtype)
}
