package repository

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/welldanyogia/paperboy/internal/errors"
	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrNotFound       = apperrors.ErrNotFound
	ErrDuplicateEntry = apperrors.ErrDuplicateEntry
	ErrInvalidInput   = apperrors.ErrInvalidInput
)

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}

// mapError translates gorm errors into repository sentinels
func mapError(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicateKeyError(err):
		return ErrDuplicateEntry
	default:
		return fmt.Errorf("failed to %s: %w: %v", action, apperrors.ErrPersistence, err)
	}
}

// groupCount is a scan target for GROUP BY count queries
type groupCount struct {
	Name  string
	Count int64
}

func toCountMap(rows []groupCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Count
	}
	return out
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
