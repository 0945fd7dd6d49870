package llm

import "strings"

// companySuffixes are trailing legal/corporate tokens stripped (one only)
// before the last-resort name comparison. Order matters: longer variants
// first so "corp." is not left behind by "corp".
var companySuffixes = []string{
	"incorporated", "corporation", "technologies", "limited", "company",
	"systems", "corp.", "corp", "inc.", "inc", "llc", "ltd.", "ltd",
	"tech", "co.", "co",
}

// NormalizeVendorName maps a freshly extracted vendor name onto a known
// canonical name when they plausibly refer to the same entity:
//
//  1. case-insensitive exact match
//  2. case-insensitive substring either direction, only when the
//     contained string is longer than 3 characters
//  3. equality after stripping one trailing corporate suffix from both
//
// No match returns the extracted name unchanged (a new vendor). This is a
// heuristic resolver; short shared words can still collide.
func NormalizeVendorName(extracted string, existingVendors []string) string {
	extracted = strings.TrimSpace(extracted)
	if extracted == "" || len(existingVendors) == 0 {
		return extracted
	}
	extractedLower := strings.ToLower(extracted)

	for _, vendor := range existingVendors {
		if strings.ToLower(vendor) == extractedLower {
			return vendor
		}
	}

	for _, vendor := range existingVendors {
		vendorLower := strings.ToLower(vendor)
		if (strings.Contains(vendorLower, extractedLower) && len(extractedLower) > 3) ||
			(strings.Contains(extractedLower, vendorLower) && len(vendorLower) > 3) {
			return vendor
		}
	}

	extractedClean := CleanCompanyName(extractedLower)
	for _, vendor := range existingVendors {
		if CleanCompanyName(strings.ToLower(vendor)) == extractedClean {
			return vendor
		}
	}

	return extracted
}

// CleanCompanyName lowercases and strips at most one trailing corporate
// suffix token ("inc", "corp", "llc", ...).
func CleanCompanyName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range companySuffixes {
		if strings.HasSuffix(name, " "+suffix) {
			return strings.TrimSpace(name[:len(name)-len(suffix)-1])
		}
	}
	return name
}
