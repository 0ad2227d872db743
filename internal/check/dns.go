package check

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/tmater/pulse/internal/proto"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// DNSClient resolves A and AAAA records against a single nameserver.
type DNSClient struct {
	server string
	client *dns.Client
}

// NewDNSClient returns a resolver that queries server ("host:port") directly
// instead of going through the system resolver.
func NewDNSClient(server string, timeout time.Duration) *DNSClient {
	return &DNSClient{
		server: server,
		client: &dns.Client{Timeout: timeout},
	}
}

// LookupHost returns the A records followed by the AAAA records of host.
func (c *DNSClient) LookupHost(ctx context.Context, host string) ([]string, error) {
	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)

		resp, _, err := c.client.ExchangeContext(ctx, msg, c.server)
		if err != nil {
			return nil, fmt.Errorf("dns %s query: %w", dns.TypeToString[qtype], err)
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("dns %s query: %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
		}

		for _, rr := range resp.Answer {
			switch v := rr.(type) {
			case *dns.A:
				addrs = append(addrs, v.A.String())
			case *dns.AAAA:
				addrs = append(addrs, v.AAAA.String())
			}
		}
	}
	return addrs, nil
}

// DNS resolves host and splits the answer into IPv4 and IPv6 addresses.
// host should be a bare hostname, e.g. "example.com". An IP literal is not
// looked up and comes back not attempted.
func DNS(ctx context.Context, r Resolver, host string) proto.DNSResult {
	log.Printf("check: running DNS host=%s", host)

	var result proto.DNSResult
	if net.ParseIP(host) != nil {
		result.Error = &proto.ErrInfo{Type: proto.ErrInvalidTarget, Message: "dns lookup not possible on ip"}
		log.Printf("check: DNS skipped host=%s reason=ip literal", host)
		return result
	}

	result.Attempted = true
	start := time.Now()
	addrs, err := r.LookupHost(ctx, host)
	latency := time.Since(start)
	result.MS = int(latency.Milliseconds())

	if err != nil {
		result.Error = failure(ctx, err, proto.ErrResolveFailed, "unable to look up dns")
		log.Printf("check: DNS failed host=%s error=%s", host, err)
		return result
	}
	if len(addrs) == 0 {
		result.Error = &proto.ErrInfo{Type: proto.ErrNoAddresses, Message: "no addresses resolved"}
		log.Printf("check: DNS failed host=%s error=no addresses resolved", host)
		return result
	}

	for _, a := range addrs {
		ip := net.ParseIP(a)
		switch {
		case ip == nil:
			log.Printf("check: DNS ignoring invalid address host=%s addr=%q", host, a)
		case ip.To4() != nil:
			result.A = append(result.A, a)
		default:
			result.AAAA = append(result.AAAA, a)
		}
	}

	result.OK = true
	log.Printf("check: DNS done host=%s a=%d aaaa=%d latency=%s", host, len(result.A), len(result.AAAA), latency)
	return result
}
