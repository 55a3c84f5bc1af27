package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

type ByIDs struct {
	IDs []uuid.UUID
}

func (s ByIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id IN ?", s.IDs)
}

// SortableColumns are the columns OrderBy accepts. Anything else sorts by
// created_at, so a field taken from a query string never reaches the SQL.
var SortableColumns = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"filename":    true,
	"status":      true,
	"chunk_count": true,
	"file_size":   true,
}

type OrderBy struct {
	Field string
	Desc  bool
}

// Column is the column actually sorted on.
func (s OrderBy) Column() string {
	if SortableColumns[s.Field] {
		return s.Field
	}
	return "created_at"
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Column()}, Desc: s.Desc})
}

// NotDeleted states the soft-delete filter explicitly; gorm already adds it
// for models with a DeletedAt field.
type NotDeleted struct{}

func (s NotDeleted) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// Pagination with Limit <= 0 returns every row from Offset on.
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	if s.Limit > 0 {
		db = db.Limit(s.Limit)
	}
	if s.Offset > 0 {
		db = db.Offset(s.Offset)
	}
	return db
}
