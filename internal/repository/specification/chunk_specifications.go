package specification

import "gorm.io/gorm"

// ByContentType restricts chunks to one content type. An empty type matches everything.
type ByContentType struct {
	ContentType string
}

func (s ByContentType) Apply(db *gorm.DB) *gorm.DB {
	if s.ContentType == "" {
		return db
	}
	return db.Where("content_type = ?", s.ContentType)
}

// BySourceFile filters chunks produced from one corpus file
type BySourceFile struct {
	SourceFile string
}

func (s BySourceFile) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_file = ?", s.SourceFile)
}
