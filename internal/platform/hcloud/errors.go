package hcloud

import (
	"errors"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ErrUnauthorized marks failures caused by a rejected API token.
var ErrUnauthorized = errors.New("hcloud API token rejected")

func errorCode(err error) hcloud.ErrorCode {
	var apiErr hcloud.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errorCode(err) == hcloud.ErrorCodeNotFound
}

func apiError(op string, err error) error {
	if errorCode(err) == hcloud.ErrorCodeUnauthorized {
		return fmt.Errorf("failed to %s: %w: %w", op, ErrUnauthorized, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
