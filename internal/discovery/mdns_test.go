// ABOUTME: Tests for mDNS advertisement
// ABOUTME: Builds service records offline; no multicast sockets are opened
package discovery

import (
	"net"
	"testing"

	"github.com/dipak140/oboe-music-player/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	ips := []net.IP{net.ParseIP("192.168.1.20")}
	svc, err := newService(Config{Name: "Living Room", Port: 8930}, ips)
	require.NoError(t, err)

	assert.Equal(t, "Living Room", svc.Instance)
	assert.Equal(t, ServiceType, svc.Service)
	assert.Equal(t, 8930, svc.Port)
	assert.Contains(t, svc.TXT, "control=/control")
	assert.Contains(t, svc.TXT, "version="+version.Version)
}

func TestNewServiceValidates(t *testing.T) {
	ips := []net.IP{net.ParseIP("10.0.0.2")}

	_, err := newService(Config{Port: 8930}, ips)
	assert.Error(t, err)

	_, err = newService(Config{Name: "x", Port: 0}, ips)
	assert.Error(t, err)

	_, err = newService(Config{Name: "x", Port: 70000}, ips)
	assert.Error(t, err)
}

func TestStopBeforeStart(t *testing.T) {
	a := NewAdvertiser(Config{Name: "x", Port: 1}, nil)
	assert.NoError(t, a.Stop())
}

func TestGetLocalIPsSkipsLoopback(t *testing.T) {
	ips, err := getLocalIPs()
	require.NoError(t, err)
	for _, ip := range ips {
		assert.False(t, ip.IsLoopback())
		assert.NotNil(t, ip.To4())
	}
}
