package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm handle for read-side repositories that never rebind
// onto a transaction, like the branch lookups.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB binds the handle to ctx. A nil ctx returns the bare handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
