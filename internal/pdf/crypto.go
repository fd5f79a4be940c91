package pdf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPasswordRequired is returned when a document is encrypted and the
// supplied passwords do not open it.
var ErrPasswordRequired = errors.New("pdf: document is encrypted, a valid password is required")

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPasswordRequired) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func wrapPasswordError(err error) error {
	if err == nil || errors.Is(err, ErrPasswordRequired) || !IsPasswordError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPasswordRequired, err)
}
