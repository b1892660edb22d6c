package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Transport failure kinds, used as log fields and metric labels only.
const (
	FailureTimeout           = "timeout"
	FailureDNS               = "dns"
	FailureConnectionRefused = "connection_refused"
	FailureTLS               = "tls"
	FailureCanceled          = "canceled"
	FailureOther             = "other"
)

// TransportFailureKind classifies a transport error without altering it.
func TransportFailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case IsTimeout(err):
		return FailureTimeout
	case IsDNSFailure(err):
		return FailureDNS
	case IsConnectionRefused(err):
		return FailureConnectionRefused
	case IsTLSFailure(err):
		return FailureTLS
	default:
		return FailureOther
	}
}

func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func IsDNSFailure(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func IsTLSFailure(err error) bool {
	if err == nil {
		return false
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}
	var hostErr x509.HostnameError
	return errors.As(err, &hostErr)
}
