package app

import (
	"os"
	"strconv"
)

// TestModeEnv names the variable that switches binaries into test mode.
const TestModeEnv = "WAARI_TEST_MODE"

// InTestMode reports whether binaries should skip runtime side effects such
// as binding ports or connecting to Postgres and Redis.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
