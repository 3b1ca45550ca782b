package repository

import (
	"errors"

	"gorm.io/gorm"
)

// isUniqueViolation reports whether err is a unique constraint violation.
// Both the postgres and the sqlite driver translate those to
// gorm.ErrDuplicatedKey because the connections are opened with
// TranslateError enabled.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
