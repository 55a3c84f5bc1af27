package specification

import (
	"ai-docqa-be/internal/entity"

	"gorm.io/gorm"
)

type ByStatus struct {
	Statuses []entity.DocumentStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, len(s.Statuses))
	for i, st := range s.Statuses {
		values[i] = string(st)
	}
	return db.Where("status IN ?", values)
}

type ByFileType struct {
	FileType string
}

func (s ByFileType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_type = ?", s.FileType)
}

// FilenameSearch matches filenames case-insensitively.
type FilenameSearch struct {
	Query string
}

func (s FilenameSearch) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("filename ILIKE ?", "%"+s.Query+"%")
}
