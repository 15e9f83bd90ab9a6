package validation

import (
	"fmt"
)

// Username validates a principal username: 3-50 characters, limited to
// letters, digits and underscores so keys derived from it stay unambiguous.
func Username(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("username must be between 3 and 50 characters")
	}
	if !identifierChars(username) {
		return fmt.Errorf("username may only contain letters, digits and underscores")
	}
	return nil
}

// GrowID validates a ledger account identifier: 3-30 characters.
func GrowID(growid string) error {
	if len(growid) < 3 || len(growid) > 30 {
		return fmt.Errorf("growid must be between 3 and 30 characters")
	}
	if !identifierChars(growid) {
		return fmt.Errorf("growid may only contain letters, digits and underscores")
	}
	return nil
}

func identifierChars(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
