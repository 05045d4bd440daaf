// Package card classifies payment card numbers by checksum and network.
// Classification is pure: no state, no I/O, integer arithmetic only.
package card

import "strings"

// Network labels reported by Validate.
const (
	NetworkInvalid    = "Invalid Card Number"
	NetworkAmex       = "American Express"
	NetworkVisa       = "Visa"
	NetworkMastercard = "Mastercard"
	NetworkDiscover   = "Discover"
	NetworkJCB        = "JCB"
	NetworkUnknown    = "Unknown"
)

const (
	minCardLength = 13
	maxCardLength = 19
)

// Result reports the checksum validity and network of one candidate.
// Validity and network are computed independently: a number can carry a
// recognizable network prefix and still fail the checksum.
type Result struct {
	Valid   bool   `json:"valid"`
	Network string `json:"network"`
}

type rule struct {
	network  string
	prefixes []string
	lengths  []int
}

// Ordered rule table, first match wins.
var networkRules = []rule{
	{network: NetworkAmex, prefixes: []string{"34", "37"}, lengths: []int{15}},
	{network: NetworkVisa, prefixes: []string{"4"}, lengths: []int{13, 16, 19}},
	{network: NetworkMastercard, prefixes: []string{"50", "51", "52", "53", "54", "55"}, lengths: []int{16}},
	{network: NetworkDiscover, prefixes: []string{"6011", "644", "645", "646", "647", "648", "649", "65"}, lengths: []int{16, 19}},
	{network: NetworkJCB, prefixes: []string{"35"}, lengths: []int{15, 16, 17, 18, 19}},
}

// Validate strips non-digits from candidate and reports checksum validity
// plus network classification. It never fails: malformed input yields an
// invalid Result.
func Validate(candidate string) Result {
	digits := stripNonDigits(candidate)
	if len(digits) < minCardLength || len(digits) > maxCardLength {
		return Result{Valid: false, Network: NetworkInvalid}
	}
	return Result{
		Valid:   luhnValid(digits),
		Network: classify(digits),
	}
}

func stripNonDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// luhnValid implements the mod-10 double-and-reduce checksum. Digits are
// 1-indexed from the right: odd positions count as-is, even positions are
// doubled with 9 subtracted when the double exceeds 9.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func classify(digits string) string {
	length := len(digits)
	for _, r := range networkRules {
		if !containsInt(r.lengths, length) {
			continue
		}
		for _, prefix := range r.prefixes {
			if strings.HasPrefix(digits, prefix) {
				return r.network
			}
		}
	}
	return NetworkUnknown
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
