package pool

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net"
	"syscall"

	"github.com/mozilla-ai/mcpool/internal/errors"
)

// taxonomy lists the errors Classify may produce.
var taxonomy = []error{
	errors.ErrInvalidServerURL,
	errors.ErrCapacityExceeded,
	errors.ErrPoolClosed,
	errors.ErrTimeout,
	errors.ErrDNS,
	errors.ErrConnectionRefused,
	errors.ErrNetwork,
	errors.ErrUpstream,
}

// Classify wraps an error returned by a client with the matching domain error.
// Errors that already carry a domain error are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, known := range taxonomy {
		if stdErrors.Is(err, known) {
			return err
		}
	}

	var (
		dnsErr *net.DNSError
		netErr net.Error
	)

	switch {
	case stdErrors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
	case stdErrors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", errors.ErrDNS, err)
	case stdErrors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %w", errors.ErrConnectionRefused, err)
	case stdErrors.As(err, &netErr):
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", errors.ErrNetwork, err)
	default:
		return fmt.Errorf("%w: %w", errors.ErrUpstream, err)
	}
}
