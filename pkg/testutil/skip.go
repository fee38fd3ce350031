package testutil

import (
	"os"
	"testing"
)

// RequireIntegration guards tests that start containers. They run locally unless
// -short is given, and in CI only when INTEGRATION_TESTS is set.
func RequireIntegration(t *testing.T) {
	t.Helper()
	switch {
	case testing.Short():
		t.Skip("container test skipped with -short")
	case os.Getenv("CI") != "" && os.Getenv("INTEGRATION_TESTS") == "":
		t.Skip("container test skipped in CI; set INTEGRATION_TESTS=1 to run it")
	}
}
