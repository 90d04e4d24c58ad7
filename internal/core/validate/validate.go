// Package validate provides shared validation functions for record input.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hay-kot/criterio"
)

const (
	maxUserIDLen  = 128
	maxMessageLen = 64 * 1024
)

// Message validates a record message is non-empty after trimming whitespace.
func Message(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("message is required")
	}
	if len(msg) > maxMessageLen {
		return fmt.Errorf("message exceeds %d bytes", maxMessageLen)
	}
	return nil
}

// UserID validates a user id is non-empty and contains no whitespace.
func UserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id is required")
	}
	if len(id) > maxUserIDLen {
		return fmt.Errorf("user id exceeds %d bytes", maxUserIDLen)
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("user id must not contain whitespace")
	}
	return nil
}

// Report validates the caller-supplied fields of a record.
func Report(userID, message string) error {
	return criterio.ValidateStruct(
		criterio.Run("user", userID, UserID),
		criterio.Run("message", message, Message),
	)
}
