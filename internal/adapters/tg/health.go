package tg

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

const (
	probeTimeout = 3 * time.Second
	proxyTimeout = 5 * time.Second
)

// checkConnectivity пишет в лог, есть ли IPv4/IPv6 и доступен ли прокси.
// Ничего не блокирует: TDLib всё равно попробует подключиться сам.
func checkConnectivity(logger *slog.Logger, proxy *ProxyConfig) {
	dial(logger, "tcp4", "8.8.8.8:53", probeTimeout)
	dial(logger, "tcp6", "[2606:4700:4700::1111]:53", probeTimeout)
	checkProxy(logger, proxy)
}

func dial(logger *slog.Logger, network, addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		logger.Warn("connectivity check failed", "network", network, "addr", addr, "error", err)
		return false
	}
	_ = conn.Close()
	logger.Info("connectivity OK", "network", network, "addr", addr)
	return true
}

func checkProxy(logger *slog.Logger, proxy *ProxyConfig) {
	if proxy == nil || !proxy.Enabled {
		logger.Info("proxy disabled, skipping check")
		return
	}

	addr := net.JoinHostPort(proxy.Server, strconv.Itoa(int(proxy.Port)))
	for _, network := range proxyNetworks(proxy.Server) {
		if dial(logger, network, addr, proxyTimeout) {
			return
		}
	}
	logger.Error("proxy unreachable", "addr", addr)
}

// proxyNetworks: для IP-литерала — его семейство, для hostname — сначала IPv6, потом IPv4.
func proxyNetworks(host string) []string {
	ip := net.ParseIP(host)
	switch {
	case ip == nil:
		return []string{"tcp6", "tcp4"}
	case ip.To4() != nil:
		return []string{"tcp4"}
	default:
		return []string{"tcp6"}
	}
}

func (p *ProxyConfig) String() string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("socks5://%s:%d", p.Server, p.Port)
}
