package errprocess

import (
	"fmt"

	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
)

// Wrap log err with its operation and return it wrapped, nil stays nil
func Wrap(op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	logger.Log.Error(op, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", op, err)
}
