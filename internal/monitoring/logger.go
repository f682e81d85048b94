package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Timing logs how long a planning stage took, in whole milliseconds.
// Stage names follow the console diagnostics ("Communication", "Planner Init",
// "Update Planner", "Planning").
func Timing(stage string, d time.Duration) {
	Logf("[Timing] %s Time(ms): %d", stage, d.Milliseconds())
}
