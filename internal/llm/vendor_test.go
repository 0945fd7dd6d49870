package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeVendorNameExactMatch(t *testing.T) {
	known := []string{"Microsoft Corporation", "Acme Inc"}
	require.Equal(t, "Microsoft Corporation", NormalizeVendorName("microsoft corporation", known))
	require.Equal(t, "Acme Inc", NormalizeVendorName("ACME INC", known))
}

func TestNormalizeVendorNameSubstring(t *testing.T) {
	known := []string{"Microsoft Corporation"}
	require.Equal(t, "Microsoft Corporation", NormalizeVendorName("Microsoft Corp", known))
	require.Equal(t, "Microsoft Corporation", NormalizeVendorName("Microsoft", known))
}

func TestNormalizeVendorNameShortStringsNotMatched(t *testing.T) {
	// "MS" is contained in "Microsoft Corporation" but too short to
	// count as evidence.
	known := []string{"Microsoft Corporation"}
	require.Equal(t, "MS", NormalizeVendorName("MS", known))
}

func TestNormalizeVendorNameSuffixStripped(t *testing.T) {
	known := []string{"Globex Corporation"}
	require.Equal(t, "Globex Corporation", NormalizeVendorName("Globex Inc", known))
}

func TestNormalizeVendorNameNoMatchReturnsInput(t *testing.T) {
	known := []string{"Microsoft Corporation"}
	require.Equal(t, "MSFT Holdings", NormalizeVendorName("MSFT Holdings", known))
}

func TestNormalizeVendorNameIdempotent(t *testing.T) {
	known := []string{"Garcia & Associates LLC"}
	first := NormalizeVendorName("GARCIA & ASSOCIATES", known)
	second := NormalizeVendorName(first, known)
	require.Equal(t, first, second)
	require.Equal(t, "Garcia & Associates LLC", first)
}

func TestNormalizeVendorNameEmptyInputs(t *testing.T) {
	require.Equal(t, "", NormalizeVendorName("  ", []string{"Acme Inc"}))
	require.Equal(t, "Acme", NormalizeVendorName("Acme", nil))
}

func TestCleanCompanyName(t *testing.T) {
	require.Equal(t, "microsoft", CleanCompanyName("Microsoft Corporation"))
	require.Equal(t, "acme", CleanCompanyName("ACME Inc."))
	require.Equal(t, "stark industries", CleanCompanyName("Stark Industries"))
	// only one trailing suffix is stripped
	require.Equal(t, "acme holding co", CleanCompanyName("Acme Holding Co Inc"))
}
