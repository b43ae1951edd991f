package prober

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"

	"PulseWatch/internal/backend/models"
	"PulseWatch/pkg/validator"
)

var errRedirectLimit = errors.New("redirect limit exceeded")

// redirectBlockedError редирект увел на запрещенную цель
type redirectBlockedError struct {
	location string
	reason   validator.Reason
}

func (e *redirectBlockedError) Error() string {
	return "redirect to " + e.location + " blocked: " + string(e.reason)
}

// classifyTransportError сопоставляет ошибку транспорта коду ошибки проверки
func classifyTransportError(err error) models.ErrorCode {
	var blocked *validator.BlockedError
	var redirectBlocked *redirectBlockedError
	if errors.As(err, &blocked) || errors.As(err, &redirectBlocked) {
		return models.ErrorTargetBlocked
	}

	if errors.Is(err, errRedirectLimit) {
		return models.ErrorRedirectLimit
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return models.ErrorTimeout
		}
		return models.ErrorDNS
	}

	if isTLSError(err) {
		return models.ErrorTLS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return models.ErrorConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return models.ErrorConnectionReset
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return models.ErrorConnection
	}

	return models.ErrorRequest
}

func isTLSError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
		alert            tls.AlertError
	)

	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification) ||
		errors.As(err, &recordHeader) ||
		errors.As(err, &alert)
}
