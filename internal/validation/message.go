package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength bounds inbound sentences; chat messages are short
// and anything longer is garbage or abuse.
const MaxMessageLength = 500

// ValidateMessage checks the required fields of an inbound chat
// message.
func ValidateMessage(userID, text string) error {
	verr := newError()

	if strings.TrimSpace(userID) == "" {
		verr.add("userId", "is required")
	}
	if strings.TrimSpace(text) == "" {
		verr.add("text", "is required")
	} else if utf8.RuneCountInString(text) > MaxMessageLength {
		verr.add("text", fmt.Sprintf("exceeds %d characters", MaxMessageLength))
	}

	return verr.orNil()
}
