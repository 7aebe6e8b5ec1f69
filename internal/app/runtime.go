package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv names the variable that makes binaries skip startup.
const TestModeEnv = "BOOTHKEEPER_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the BOOTHKEEPER_TEST_MODE flag once.
func detectTestMode() {
	testModeFlag.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}
