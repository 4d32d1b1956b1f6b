package preflight

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"kodarr/internal/config"
	"kodarr/internal/services/kodi"
)

const hostProbeTimeout = 10 * time.Second

// HostStatus is the live state of one configured host.
type HostStatus struct {
	Name      string
	Endpoint  string
	Transport string
	Priority  int
	Enabled   bool
	Reachable bool
	Version   string
	Platform  string
	Detail    string

	// QuietNotifications is set when only forced notices reach the host.
	QuietNotifications bool
}

// Result condenses the status into a preflight result.
func (s HostStatus) Result() Result {
	name := "Kodi host " + s.Name
	switch {
	case !s.Enabled:
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	case !s.Reachable:
		return Result{Name: name, Detail: s.Detail}
	default:
		return Result{Name: name, Passed: true, Detail: s.Detail}
	}
}

// ProbeHosts checks every configured host in priority order.
func ProbeHosts(ctx context.Context, cfg *config.Config, opts ...kodi.Option) []HostStatus {
	if cfg == nil {
		return nil
	}
	hosts := append([]config.Host(nil), cfg.Hosts...)
	sort.SliceStable(hosts, func(i, j int) bool { return hosts[i].Priority < hosts[j].Priority })

	statuses := make([]HostStatus, 0, len(hosts))
	for _, host := range hosts {
		statuses = append(statuses, ProbeHost(ctx, host, cfg.PathMaps, opts...))
	}
	return statuses
}

// ProbeHost pings one host and, when it answers, reads its API version and
// platform.
func ProbeHost(ctx context.Context, host config.Host, maps []config.PathMap, opts ...kodi.Option) HostStatus {
	status := HostStatus{
		Name:      host.Name,
		Endpoint:  endpoint(host),
		Transport: host.Transport,
		Priority:  host.Priority,
		Enabled:   host.IsEnabled(),
	}
	if !status.Enabled {
		status.Detail = "Disabled"
		return status
	}

	probeCtx, cancel := context.WithTimeout(ctx, hostProbeTimeout)
	defer cancel()

	client := kodi.NewFromConfig(host, maps, nil, opts...)
	defer client.Close()
	status.QuietNotifications = client.NotificationsDisabled()

	if !client.Ping(probeCtx) {
		status.Detail = fmt.Sprintf("unreachable at %s", status.Endpoint)
		return status
	}
	status.Reachable = true
	status.Platform = client.Platform(probeCtx).Short()
	if version := client.Version(probeCtx); version != nil {
		status.Version = version.String()
		status.Detail = fmt.Sprintf("Reachable (JSON-RPC %s, %s)", status.Version, status.Platform)
	} else {
		status.Detail = fmt.Sprintf("Reachable (%s)", status.Platform)
	}
	return status
}

func endpoint(host config.Host) string {
	port := host.Port
	if host.Transport == config.TransportWebSocket {
		port = host.WSPort
	}
	return net.JoinHostPort(host.Address, strconv.Itoa(port))
}
