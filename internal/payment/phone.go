// Package payment: recipient phone normalization.
//
// File: internal/payment/phone.go
package payment

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// normalizePhone canonicalizes a recipient phone number to E.164 so
// lookups match the form users are stored under ("+1 (415) 555-0102"
// and "+14155550102" resolve the same account). The number must carry
// its country code; with no authenticated region to fall back on there
// is nothing to infer a missing prefix from.
func normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("phone %q is not a valid number", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// EOF: internal/payment/phone.go
