// Package mdns advertises the metascan HTTP server on the local network.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_metascan._tcp"
	Domain      = "local."

	maxLabelLen = 63
)

// Advertiser owns a single zeroconf registration.
type Advertiser struct {
	logger *slog.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

// New returns an idle advertiser.
func New(logger *slog.Logger) *Advertiser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advertiser{logger: logger}
}

// Start registers the service on port, replacing any earlier registration.
func (a *Advertiser) Start(port int, version string) error {
	if port <= 0 {
		return fmt.Errorf("invalid port %d", port)
	}

	a.Stop()

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "metascan"
	}

	instance := InstanceName(fmt.Sprintf("metascan (%s)", hostname))
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, TXTRecords(hostname, port, version), nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	a.mu.Lock()
	a.server = server
	a.mu.Unlock()
	a.logger.Info("mDNS advertisement started", "instance", instance, "port", port)
	return nil
}

// Stop withdraws the registration, if any.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Info("mDNS advertisement stopped")
}

// TXTRecords describes the endpoints a client can reach on the host.
func TXTRecords(hostname string, port int, version string) []string {
	host := HostLabel(hostname)
	if !strings.Contains(host, ".") {
		host += ".local"
	}
	txt := []string{
		fmt.Sprintf("http_port=%d", port),
		"path=/scan/image",
		"ws=/ws/descriptors",
		fmt.Sprintf("host=%s", host),
	}
	if version != "" {
		txt = append(txt, "version="+version)
	}
	return txt
}

// InstanceName makes name safe for use as a DNS-SD instance label.
func InstanceName(name string) string {
	cleaned := strings.TrimSpace(name)
	cleaned = strings.NewReplacer("\n", " ", "\r", " ", ".", " ", "_", " ").Replace(cleaned)
	if cleaned == "" {
		cleaned = "metascan"
	}
	return truncate(cleaned)
}

// HostLabel lower-cases name and replaces characters invalid in host labels.
func HostLabel(name string) string {
	cleaned := strings.TrimSpace(strings.ToLower(name))
	cleaned = strings.NewReplacer(" ", "-", "_", "-", "\n", "", "\r", "").Replace(cleaned)
	if cleaned == "" {
		cleaned = "metascan"
	}
	return truncate(cleaned)
}

func truncate(s string) string {
	if r := []rune(s); len(r) > maxLabelLen {
		return string(r[:maxLabelLen])
	}
	return s
}
