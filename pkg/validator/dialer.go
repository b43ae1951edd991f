package validator

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"syscall"
)

// BlockedError возвращается при попытке соединиться с запрещенным адресом
type BlockedError struct {
	Addr   string
	Reason Reason
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("connection to %s blocked: %s", e.Addr, e.Reason)
}

// GuardDialer оборачивает dialer проверкой адреса в момент соединения.
// Закрывает окно между валидацией и connect, когда DNS ответ успел смениться.
func GuardDialer(dialer *net.Dialer) func(ctx context.Context, network, address string) (net.Conn, error) {
	guarded := *dialer
	guarded.Control = func(network, address string, _ syscall.RawConn) error {
		ap, err := netip.ParseAddrPort(address)
		if err != nil {
			return &BlockedError{Addr: address, Reason: ReasonInvalidURL}
		}
		if reason := ClassifyAddr(ap.Addr()); reason != "" {
			return &BlockedError{Addr: address, Reason: reason}
		}
		return nil
	}
	return guarded.DialContext
}
