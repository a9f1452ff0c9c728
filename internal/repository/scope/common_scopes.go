package scope

import "gorm.io/gorm"

// OrderByCorpusPosition lists chunks in the order they appear in their source files.
func OrderByCorpusPosition(db *gorm.DB) *gorm.DB {
	return db.Order("source_file ASC").Order("chunk_index ASC")
}
