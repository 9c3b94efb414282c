package logging

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup configures the global logger from a --log-level flag value.
func Setup(level string) error {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	switch strings.ToLower(level) {
	case "", "info":
		log.SetLevel(log.InfoLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warning", "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level %q (expected debug, info, warning or error)", level)
	}
	return nil
}

// Interactive reports whether spinner/progress output should be shown.
// Progress rendering interleaves badly with debug logging.
func Interactive() bool {
	return log.GetLevel() < log.DebugLevel
}
