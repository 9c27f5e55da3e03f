package persistence

import (
	"errors"
	"strings"

	"github.com/vendora/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// mapNotFound converts gorm.ErrRecordNotFound to shared.ErrNotFound
func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// isDuplicateKey reports a unique-constraint violation. gorm translates
// driver errors when TranslateError is set; the message checks cover
// connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
