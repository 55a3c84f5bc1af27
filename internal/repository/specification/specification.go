package specification

import "gorm.io/gorm"

// Specification is one composable query condition. Gorm repositories apply
// it to the query; memory repositories interpret the concrete types they
// know and ignore the rest.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
