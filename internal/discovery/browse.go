// ABOUTME: mDNS browsing for karaoke remote servers
// ABOUTME: Used by the command line remote when no server address is given
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServerInfo describes a discovered karaoke server
type ServerInfo struct {
	Name    string
	Host    string
	Port    int
	Version string
}

// Addr returns host:port
func (s ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Browse queries the LAN for timeout and returns every server that answered
func Browse(ctx context.Context, timeout time.Duration) ([]ServerInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan []ServerInfo, 1)

	go func() {
		var servers []ServerInfo
		seen := map[string]bool{}
		for entry := range entries {
			s, ok := serverFromEntry(entry)
			if !ok || seen[s.Addr()] {
				continue
			}
			seen[s.Addr()] = true
			servers = append(servers, s)
		}
		found <- servers
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Timeout = timeout
	params.Entries = entries
	params.DisableIPv6 = true

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(params)
		close(entries)
	}()

	select {
	case err := <-errCh:
		servers := <-found
		if err != nil {
			return servers, fmt.Errorf("mdns query failed: %w", err)
		}
		return servers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// serverFromEntry keeps only entries for our service type with an IPv4 address
func serverFromEntry(e *mdns.ServiceEntry) (ServerInfo, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return ServerInfo{}, false
	}
	if !strings.Contains(e.Name, ServiceType) {
		return ServerInfo{}, false
	}

	s := ServerInfo{
		Name: strings.TrimSuffix(e.Name, "."+ServiceType+".local."),
		Host: e.AddrV4.String(),
		Port: e.Port,
	}
	for _, field := range e.InfoFields {
		if v, ok := strings.CutPrefix(field, "version="); ok {
			s.Version = v
		}
	}
	return s, true
}
