package prober

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"PulseWatch/pkg/validator"
)

// newTransport транспорт без прокси из окружения. С dialGuard каждый connect
// проверяет фактический IP по тем же диапазонам, что и валидатор.
func newTransport(dialGuard bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	dial := dialer.DialContext
	if dialGuard {
		dial = validator.GuardDialer(dialer)
	}

	return &http.Transport{
		Proxy:       nil,
		DialContext: dial,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
