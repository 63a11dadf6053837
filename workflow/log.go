package workflow

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Debug gates the compiler's phase tracing, named after and behaving like
// the teacher's DEBUG_ANALYZER: off unless the environment variable is set.
var Debug = func() bool {
	_, on := os.LookupEnv("WFC_DEBUG")
	if on {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return on
}()

func logDebug(msg string, args ...interface{}) {
	if Debug {
		logrus.Debugf(msg, args...)
	}
}
