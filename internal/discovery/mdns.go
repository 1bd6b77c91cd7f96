// ABOUTME: mDNS advertisement of the karaoke remote service
// ABOUTME: Lets phones and tablets on the LAN find the control and monitor endpoints
package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/dipak140/oboe-music-player/internal/version"
	"github.com/hashicorp/mdns"
	"go.uber.org/zap"
)

// ServiceType is the DNS-SD type advertised for the remote server
const ServiceType = "_karaoke._tcp"

// Config holds discovery configuration
type Config struct {
	Name string
	Port int
}

// Advertiser publishes the remote service over mDNS
type Advertiser struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	server *mdns.Server
}

// NewAdvertiser creates an advertiser; nothing is sent until Start
func NewAdvertiser(config Config, logger *zap.Logger) *Advertiser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advertiser{
		config: config,
		logger: logger.Named("discovery"),
	}
}

// Start begins answering mDNS queries
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := newService(a.config, ips)
	if err != nil {
		return err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	a.server = server

	a.logger.Info("advertising mDNS service",
		zap.String("name", a.config.Name),
		zap.Int("port", a.config.Port),
		zap.String("type", ServiceType),
		zap.Int("addresses", len(ips)))
	return nil
}

// Stop withdraws the advertisement
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown()
	a.server = nil
	a.logger.Info("mDNS advertisement stopped")
	return err
}

func newService(config Config, ips []net.IP) (*mdns.MDNSService, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}

	service, err := mdns.NewMDNSService(
		config.Name,
		ServiceType,
		"",
		"",
		config.Port,
		ips,
		txtRecords(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return service, nil
}

func txtRecords() []string {
	return []string{
		"control=/control",
		"monitor=/monitor",
		"version=" + version.Version,
		"product=" + version.Product,
	}
}

// getLocalIPs returns the IPv4 addresses of up, non-loopback interfaces
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
