package utils

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// ValidatePhone accepts exactly ten ASCII digits.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return NewValidationError("กรุณาใส่หมายเลขโทรศัพท์ 10 หลัก")
	}
	return nil
}
