package domain

import (
	"time"

	"gorm.io/gorm"
)

// EventStatus represents the editorial state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
)

// Event is a dated happening, optionally linked to a Location.
type Event struct {
	ID                string         `gorm:"type:text;primaryKey" json:"id"`
	TitleDe           string         `gorm:"type:text" json:"title_de"`
	TitleEn           string         `gorm:"type:text" json:"title_en"`
	DescriptionDe     string         `gorm:"type:text" json:"description_de"`
	DescriptionEn     string         `gorm:"type:text" json:"description_en"`
	Organizer         string         `gorm:"type:text" json:"organizer,omitempty"`
	Status            EventStatus    `gorm:"type:text" json:"status"`
	ImportedEventHash string         `gorm:"type:text;index:idx_events_hash" json:"imported_event_hash"`
	ExternalID        string         `gorm:"type:text" json:"external_id,omitempty"`
	IsImported        bool           `gorm:"default:false" json:"is_imported"`
	LastUpdate        *time.Time     `json:"last_update,omitempty"`
	LocationID        *string        `gorm:"type:text;index:idx_events_location" json:"location_id,omitempty"`
	Dates             []EventDate    `gorm:"constraint:OnDelete:CASCADE" json:"dates,omitempty"`
	Terms             []Term         `gorm:"many2many:event_terms" json:"terms,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string {
	return "events"
}

// SameLocation reports whether the event is linked to locationID (nil meaning unlinked).
func (e *Event) SameLocation(locationID *string) bool {
	if e.LocationID == nil || locationID == nil {
		return e.LocationID == nil && locationID == nil
	}
	return *e.LocationID == *locationID
}

// EventDate is one occurrence of an event.
type EventDate struct {
	ID      string    `gorm:"type:text;primaryKey" json:"id"`
	EventID string    `gorm:"type:text;not null;index:idx_event_dates_event" json:"event_id"`
	Date    time.Time `json:"date"`
	Begin   time.Time `gorm:"column:begin_at" json:"begin"`
	End     time.Time `gorm:"column:end_at" json:"end"`
}

// TableName returns the database table name for EventDate.
func (EventDate) TableName() string {
	return "event_dates"
}
