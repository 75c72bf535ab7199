package actuator

import (
	"context"

	"go.uber.org/zap"
)

// Log is a dry-run actuator that only logs commands.
type Log struct {
	log *zap.Logger
}

// NewLog creates a dry-run actuator.
func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("dryrun")}
}

// Command logs cmd.
func (l *Log) Command(_ context.Context, cmd Command) error {
	l.log.Info("Punishment", zap.Stringer("command", cmd))
	return nil
}
