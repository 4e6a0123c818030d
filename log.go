package sieve

import (
	"fmt"
	"log"
)

func logWarning(format string, v ...interface{}) {
	log.Printf(fmt.Sprintf("sieve: warning: %s", format), v...)
}

// LogWarning is called by this library when it wants to output a warning that
// is not tied to a script location (e.g. an unknown extension name passed to
// [Instance.SetExtensions]).
//
// The default implementation uses [log.Printf] to output the warning.
// You can re-assign LogWarning to something more suitable for your
// application. But do not assign nil to it.
var LogWarning = logWarning
