// Package discovery advertises monitors on the local network with mDNS and
// finds the ones that others advertise.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type of a monitor.
	ServiceType = "_neurotrack._tcp"

	// ServiceDomain is the mDNS domain monitors are advertised in.
	ServiceDomain = "local."
)

// ErrNoAddress is returned when the host has no usable IPv4 address.
var ErrNoAddress = errors.New("no non-loopback IPv4 address")

// An Advertiser announces a monitor port.
type Advertiser struct {
	mutex        sync.Mutex
	server       *zeroconf.Server
	instanceName string
	port         int
	version      string
	ip           string
}

// NewAdvertiser creates an advertiser for the port. The instance name is
// derived from the host name.
func NewAdvertiser(port int, version string) *Advertiser {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "neurotrack"
	}

	return &Advertiser{
		instanceName: InstanceName(hostname),
		port:         port,
		version:      version,
	}
}

// InstanceName turns a host name into an instance name.
func InstanceName(hostname string) string {
	hostname, _, _ = strings.Cut(hostname, ".")
	return hostname + "-neurotrack"
}

// Start registers the service. Starting twice is a no-op.
func (a *Advertiser) Start() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.server != nil {
		return nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}

	ip, err := pickIPv4(addrs)
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(
		a.instanceName,
		ServiceType,
		ServiceDomain,
		a.port,
		txtRecords(a.version, ip),
		nil,
	)
	if err != nil {
		return fmt.Errorf("registering %s: %w", ServiceType, err)
	}

	a.server = server
	a.ip = ip

	log.Printf("advertising %s.%s on %s:%d",
		a.instanceName, ServiceType, ip, a.port)

	return nil
}

// Stop withdraws the service. It is safe to call on a stopped advertiser.
func (a *Advertiser) Stop() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.server == nil {
		return
	}

	a.server.Shutdown()
	a.server = nil
}

// InstanceName returns the advertised instance name.
func (a *Advertiser) InstanceName() string {
	return a.instanceName
}

// IP returns the advertised address, or "" before Start.
func (a *Advertiser) IP() string {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.ip
}

func txtRecords(version, ip string) []string {
	return []string{
		"version=" + version,
		"ip=" + ip,
		"name=NeuroTrack Monitor",
	}
}

func pickIPv4(addrs []net.Addr) (string, error) {
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}

		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}

	return "", ErrNoAddress
}

// A Monitor is a monitor found on the network.
type Monitor struct {
	Instance string
	Host     string
	Port     int
	Version  string
	Addrs    []net.IP
}

// URL returns the address of the monitor's web server.
func (m Monitor) URL() string {
	host := m.Host
	if len(m.Addrs) > 0 {
		host = m.Addrs[0].String()
	}

	return fmt.Sprintf("http://%s", net.JoinHostPort(
		strings.TrimSuffix(host, "."), fmt.Sprint(m.Port)))
}

func monitorFromEntry(e *zeroconf.ServiceEntry) Monitor {
	m := Monitor{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		Addrs:    e.AddrIPv4,
	}

	for _, txt := range e.Text {
		if v, ok := strings.CutPrefix(txt, "version="); ok {
			m.Version = v
		}
	}

	return m
}

// Browse looks for monitors until the context is done and returns all that
// answered.
func Browse(ctx context.Context) ([]Monitor, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan []Monitor, 1)

	go func() {
		var monitors []Monitor
		for e := range entries {
			monitors = append(monitors, monitorFromEntry(e))
		}
		found <- monitors
	}()

	err = resolver.Browse(ctx, ServiceType, ServiceDomain, entries)
	if err != nil {
		return nil, fmt.Errorf("browsing %s: %w", ServiceType, err)
	}

	<-ctx.Done()

	return <-found, nil
}
