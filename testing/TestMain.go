// Package testing switches the process into test mode when imported by a
// test binary, so no real mail or background side effects are triggered.
package testing

import "os"

// Defaults are applied to the environment unless already set.
var Defaults = map[string]string{
	"WAARI_TEST_MODE": "1",
	"JWT_SECRET":      "test-secret",
	"AUTH_SCHEME":     "token",
	"LOG_FORMAT":      "json",
}

func init() {
	for key, value := range Defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}
