package scope

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// LockForUpdate takes a row lock (SELECT ... FOR UPDATE) held until the transaction ends.
func LockForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
