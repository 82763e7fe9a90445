package quorum

import (
	"github.com/tendermint/tendermint/libs/log"
)

// DefaultLogger is used by every component that was not given a logger.
var DefaultLogger = log.NewNopLogger()

// LoggerOrDefault returns given logger, or DefaultLogger if nil.
func LoggerOrDefault(l log.Logger) log.Logger {
	if l == nil {
		return DefaultLogger
	}
	return l
}
