package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// codePattern matches the package code wire format: PKG-<ALNUM>-<YYYYMMDD>.
// The middle segment is the per-day short id printed on the label.
var codePattern = regexp.MustCompile(`^PKG-[A-Z0-9]+-(\d{8})$`)

// NormalizeCode canonicalizes an operator-entered or QR-decoded package code.
// Scanner firmware and soft keyboards disagree about Unicode forms and case,
// so codes are NFC normalized, trimmed, and upper-cased before comparison.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(norm.NFC.String(raw)))
}

// ValidateCode checks that code is a well-formed package code.
// It does not check that the package exists; that is the authority's call.
func ValidateCode(code string) error {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return fmt.Errorf("malformed package code %q: want PKG-<ALNUM>-<YYYYMMDD>", code)
	}
	if _, err := time.Parse("20060102", m[1]); err != nil {
		return fmt.Errorf("malformed package code %q: bad date segment: %w", code, err)
	}
	return nil
}
