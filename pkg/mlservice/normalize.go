package mlservice

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	numberRegex         = regexp.MustCompile(`\d+(?:\.\d+)?`)
	leadingMerchantRe   = regexp.MustCompile(`(?i)^(from|to|at|@)\s+`)
	trailingMerchantRe  = regexp.MustCompile(`(?i)[\s,]+(inc|llc|ltd|corp|co)\.?$`)
	currencyJunkRemover = strings.NewReplacer("$", "", "€", "", "£", "", "₹", "", ",", "", " ", "")
)

// ParseAmount extracts a positive monetary amount from a raw string like
// "$1,234.50". Returns false for unparseable or non-positive values.
func ParseAmount(raw string) (float64, bool) {
	cleaned := currencyJunkRemover.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}

	token := numberRegex.FindString(cleaned)
	if token == "" {
		return 0, false
	}

	amount, err := strconv.ParseFloat(token, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// dateLayouts are tried in order after native timestamp parsing fails.
var dateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"01-02-2006",
}

// ParseDate parses a transaction date. Unparseable dates are nil, not errors.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// CleanMerchant trims a raw merchant string, dropping a leading from/to/at/@
// token and a trailing corporate suffix. An empty result becomes nil.
func CleanMerchant(raw string) *string {
	merchant := strings.TrimSpace(raw)
	merchant = leadingMerchantRe.ReplaceAllString(merchant, "")
	merchant = trailingMerchantRe.ReplaceAllString(merchant, "")
	merchant = strings.TrimSpace(strings.TrimSuffix(merchant, "."))
	if merchant == "" {
		return nil
	}
	return &merchant
}
