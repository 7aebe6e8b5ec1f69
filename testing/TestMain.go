// Package testing forces test mode for binaries exercised from tests.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("BOOTHKEEPER_TEST_MODE", "1")
		if os.Getenv("REPORT_EARLIEST_DATE") == "" {
			_ = os.Setenv("REPORT_EARLIEST_DATE", "2000-01-01")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs m with test mode set.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
