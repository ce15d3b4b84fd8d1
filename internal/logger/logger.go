package logger

import (
	"go.uber.org/zap"
)

// New returns a development logger when debug is set, a production one otherwise.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
