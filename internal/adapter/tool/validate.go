package tool

import (
	"fmt"
	"net"
	"strings"
)

// ValidateMin checks that value is at least min. Zero passes so that
// optional integers can fall back to their defaults.
func ValidateMin(name string, value, min int) error {
	if value == 0 {
		return nil
	}
	if value < min {
		return fmt.Errorf("%s must be at least %d", name, min)
	}
	return nil
}

// ValidateMaxLength checks that value does not exceed max bytes.
func ValidateMaxLength(name, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s exceeds maximum length of %d", name, max)
	}
	return nil
}

// ValidateHostname checks that value is a bare host name such as "go.dev",
// without scheme, path or whitespace. An empty value passes.
func ValidateHostname(name, value string) error {
	if value == "" {
		return nil
	}
	if strings.ContainsAny(value, " \t\r\n/:?#@") {
		return fmt.Errorf("invalid %s %q: want a bare host name like example.com", name, value)
	}
	if net.ParseIP(value) != nil {
		return nil
	}
	for _, label := range strings.Split(value, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("invalid %s %q: malformed host name", name, value)
		}
	}
	return nil
}

// ValidateAll returns the first non-nil error from the given list.
func ValidateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
