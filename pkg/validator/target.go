package validator

import (
	"context"
	"log/slog"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// Reason стабильный код причины отказа
type Reason string

const (
	ReasonInvalidURL          Reason = "invalid_url"
	ReasonUnsupportedScheme   Reason = "unsupported_scheme"
	ReasonBlockedHostname     Reason = "blocked_hostname"
	ReasonLiteralIPNotAllowed Reason = "literal_ip_not_allowed"
	ReasonLoopbackAddress     Reason = "loopback_address"
	ReasonPrivateAddress      Reason = "private_address"
	ReasonLinkLocalAddress    Reason = "link_local_address"
	ReasonMulticastAddress    Reason = "multicast_address"
	ReasonReservedAddress     Reason = "reserved_address"
	ReasonUnspecifiedAddress  Reason = "unspecified_address"
	ReasonDNSResolutionFailed Reason = "dns_resolution_failed"
	ReasonNoAddresses         Reason = "no_addresses"
)

// Transient причины не означают блокировку по политике, цель просто не разрешилась
func (r Reason) Transient() bool {
	return r == ReasonDNSResolutionFailed
}

// Verdict результат проверки цели
type Verdict struct {
	Allowed bool         `json:"allowed"`
	Reason  Reason       `json:"reason,omitempty"`
	Host    string       `json:"host,omitempty"`
	Addrs   []netip.Addr `json:"addrs,omitempty"`
	Cached  bool         `json:"cached"`
}

func allow(host string, addrs []netip.Addr) Verdict {
	return Verdict{Allowed: true, Host: host, Addrs: addrs}
}

func block(host string, reason Reason) Verdict {
	return Verdict{Allowed: false, Host: host, Reason: reason}
}

// BlockCounter получает каждую блокировку (счетчики по причинам)
type BlockCounter interface {
	RecordBlocked(reason string)
}

type Config struct {
	// Время жизни записи кэша, 0 - без кэша
	CacheTTL time.Duration
	// Запрещать цели вида http://1.2.3.4/
	RequireHostname bool
	// Дополнительные запрещенные имена (точное совпадение или суффикс ".name")
	BlockedHostnames []string
}

var defaultBlockedHostnames = []string{
	"localhost",
	"localhost.localdomain",
	"local",
	"internal",
	"metadata.google.internal",
}

// Validator классифицирует цели мониторинга (защита от SSRF).
// Вызывается при создании монитора и перед каждой проверкой.
type Validator struct {
	resolver        Resolver
	cache           *verdictCache
	requireHostname bool
	blockedNames    []string
	counter         BlockCounter
	logger          *slog.Logger
	now             func() time.Time
}

func New(cfg Config, resolver Resolver, counter BlockCounter, logger *slog.Logger) *Validator {
	if resolver == nil {
		resolver = NewSystemResolver()
	}
	if logger == nil {
		logger = slog.Default()
	}

	names := append([]string{}, defaultBlockedHostnames...)
	for _, name := range cfg.BlockedHostnames {
		names = append(names, strings.ToLower(strings.TrimSuffix(name, ".")))
	}

	return &Validator{
		resolver:        resolver,
		cache:           newVerdictCache(cfg.CacheTTL),
		requireHostname: cfg.RequireHostname,
		blockedNames:    names,
		counter:         counter,
		logger:          logger,
		now:             time.Now,
	}
}

// Validate проверяет URL цели
func (v *Validator) Validate(ctx context.Context, target string) Verdict {
	verdict := v.validate(ctx, target)
	if !verdict.Allowed && !verdict.Reason.Transient() {
		if v.counter != nil {
			v.counter.RecordBlocked(string(verdict.Reason))
		}
		v.logger.Warn("target blocked",
			"target", target,
			"reason", verdict.Reason,
		)
	}
	return verdict
}

func (v *Validator) validate(ctx context.Context, target string) Verdict {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.Host == "" {
		return block("", ReasonInvalidURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return block("", ReasonUnsupportedScheme)
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return block("", ReasonInvalidURL)
	}

	// Литеральный IP проверяем без DNS
	if addr, err := netip.ParseAddr(host); err == nil {
		if reason := ClassifyAddr(addr); reason != "" {
			return block(host, reason)
		}
		if v.requireHostname {
			return block(host, ReasonLiteralIPNotAllowed)
		}
		return allow(host, []netip.Addr{addr.Unmap()})
	}

	if v.isBlockedHostname(host) {
		return block(host, ReasonBlockedHostname)
	}

	now := v.now()
	if cached, ok := v.cache.get(host, now); ok {
		cached.Cached = true
		return cached
	}

	addrs, err := v.resolver.LookupAddrs(ctx, host)
	if err != nil {
		v.logger.Debug("target resolution failed", "host", host, "error", err)
		return block(host, ReasonDNSResolutionFailed)
	}

	verdict := classifyResolved(host, addrs)
	v.cache.put(host, verdict, now)
	return verdict
}

// Все адреса должны быть публичными: один приватный адрес блокирует цель
func classifyResolved(host string, addrs []netip.Addr) Verdict {
	if len(addrs) == 0 {
		return block(host, ReasonNoAddresses)
	}

	for _, addr := range addrs {
		if reason := ClassifyAddr(addr); reason != "" {
			return block(host, reason)
		}
	}
	return allow(host, addrs)
}

func (v *Validator) isBlockedHostname(host string) bool {
	for _, name := range v.blockedNames {
		if host == name || strings.HasSuffix(host, "."+name) {
			return true
		}
	}
	return false
}

// PurgeExpired чистит просроченные записи кэша
func (v *Validator) PurgeExpired() int {
	return v.cache.purge(v.now())
}

// IsLiteralIPOrLocalhost true для целей вида http://10.0.0.1/ или http://localhost/
func IsLiteralIPOrLocalhost(target string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	return host == "localhost" || strings.HasSuffix(host, ".localhost")
}

// Hostname возвращает имя хоста цели в нижнем регистре
func Hostname(target string) string {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
}
