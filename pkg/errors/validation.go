package errors

import (
	"strings"
	"unicode"
)

// maxUnitTextLen bounds the text a unit can be created from.
const maxUnitTextLen = 4096

// ValidateUnitText checks the text a new unit is created from.
//
// The rules are:
//   - not empty or whitespace only
//   - no control characters other than tab
//   - at most 4096 bytes
//
// Class-specific argument checking is left to the runtime.
func ValidateUnitText(text string) error {
	if strings.TrimSpace(text) == "" {
		return New(ErrCodeInvalidInput, "unit text cannot be empty")
	}
	if len(text) > maxUnitTextLen {
		return New(ErrCodeInvalidInput, "unit text too long (max %d bytes)", maxUnitTextLen)
	}
	for _, r := range text {
		if r != '\t' && unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "unit text contains control characters")
		}
	}
	return nil
}

// ValidateChannel checks a pub/sub channel name used for change notifications.
func ValidateChannel(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "channel name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\r\n*?[]") {
		return New(ErrCodeInvalidConfig, "channel name %q contains whitespace or glob characters", name)
	}
	return nil
}
