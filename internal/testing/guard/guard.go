// Package guard flags the process as a test run so binaries skip runtime
// side effects when imported from tests.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SANCTUS_TEST_MODE") == "" {
			_ = os.Setenv("SANCTUS_TEST_MODE", "1")
		}
		if os.Getenv("JWT_SECRET") == "" {
			_ = os.Setenv("JWT_SECRET", "test-secret")
		}
	})
}
