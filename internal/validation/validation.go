// Package validation checks user-supplied identifiers before they reach storage.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLen = 6
	MaxPasswordLen = 128
	MaxEmailLen    = 254
	MaxNameLen     = 100
	MaxSliceKeyLen = 128
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@.]+$`)
	sliceKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)
)

// ValidatePassword checks length only; members are not forced into composition rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}
	if n > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}
	return nil
}

// ValidateEmail checks the shape of an address, not its deliverability.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return errors.New("email is not a valid address")
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("name must be at most %d characters", MaxNameLen)
	}
	return nil
}

// ValidateSliceKey checks a slice key: letters, digits and _ . : - only.
func ValidateSliceKey(key string) error {
	if key == "" || len(key) > MaxSliceKeyLen {
		return fmt.Errorf("slice key must be 1-%d characters", MaxSliceKeyLen)
	}
	if !sliceKeyRegex.MatchString(key) {
		return errors.New("slice key may only contain letters, digits, '_', '.', ':' and '-'")
	}
	return nil
}
