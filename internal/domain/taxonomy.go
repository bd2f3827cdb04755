package domain

import "time"

// Taxonomy groups reference terms, e.g. event categories or institution types.
type Taxonomy struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Slug      string    `gorm:"type:text;uniqueIndex:idx_taxonomies_slug" json:"slug"`
	NameDe    string    `gorm:"type:text" json:"name_de"`
	NameEn    string    `gorm:"type:text" json:"name_en"`
	Terms     []Term    `json:"terms,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Taxonomy.
func (Taxonomy) TableName() string {
	return "taxonomies"
}

// Term is one entry of a taxonomy. ParentID links hierarchical terms.
type Term struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	TaxonomyID string    `gorm:"type:text;not null;index:idx_terms_taxonomy" json:"taxonomy_id"`
	ParentID   *string   `gorm:"type:text" json:"parent_id,omitempty"`
	NameDe     string    `gorm:"type:text" json:"name_de"`
	NameEn     string    `gorm:"type:text" json:"name_en"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for Term.
func (Term) TableName() string {
	return "terms"
}
