package validator

import "net/netip"

// Диапазоны, которые не являются публичными, но не покрываются методами netip.Addr
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // CGNAT
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"), // TEST-NET-1
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"), // TEST-NET-2
	netip.MustParsePrefix("203.0.113.0/24"),  // TEST-NET-3
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("255.255.255.255/32"),
	netip.MustParsePrefix("::/96"), // IPv4-compatible, устарели
	netip.MustParsePrefix("64:ff9b:1::/48"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/23"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("fec0::/10"),
}

// IPv6 префиксы, внутри которых лежит IPv4 адрес, и смещение этого адреса
var embeddedIPv4 = []struct {
	prefix netip.Prefix
	offset int
}{
	{netip.MustParsePrefix("64:ff9b::/96"), 12}, // NAT64
	{netip.MustParsePrefix("2002::/16"), 2},     // 6to4
	{netip.MustParsePrefix("::/96"), 12},
}

func embeddedV4(addr netip.Addr) (netip.Addr, bool) {
	if !addr.Is6() {
		return netip.Addr{}, false
	}
	b := addr.As16()
	for _, e := range embeddedIPv4 {
		if e.prefix.Contains(addr) {
			return netip.AddrFrom4([4]byte(b[e.offset : e.offset+4])), true
		}
	}
	return netip.Addr{}, false
}

// ClassifyAddr возвращает причину блокировки адреса или пустую строку для публичного адреса
func ClassifyAddr(addr netip.Addr) Reason {
	if !addr.IsValid() {
		return ReasonInvalidURL
	}

	// ::ffff:127.0.0.1 проверяем как IPv4
	addr = addr.Unmap()

	switch {
	case addr.IsUnspecified():
		return ReasonUnspecifiedAddress
	case addr.IsLoopback():
		return ReasonLoopbackAddress
	case addr.IsPrivate():
		return ReasonPrivateAddress
	case addr.IsLinkLocalUnicast():
		return ReasonLinkLocalAddress
	case addr.IsMulticast(), addr.IsLinkLocalMulticast(), addr.IsInterfaceLocalMulticast():
		return ReasonMulticastAddress
	}

	// 64:ff9b::a9fe:a9fe ведет туда же, куда 169.254.169.254
	if v4, ok := embeddedV4(addr); ok {
		if reason := ClassifyAddr(v4); reason != "" {
			return reason
		}
	}

	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return ReasonReservedAddress
		}
	}

	return ""
}
