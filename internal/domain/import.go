package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ImportStatus represents the lifecycle state of a spreadsheet import.
type ImportStatus string

const (
	ImportStatusCreated    ImportStatus = "CREATED"
	ImportStatusAssign     ImportStatus = "ASSIGN"
	ImportStatusProcess    ImportStatus = "PROCESS"
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusProcessed  ImportStatus = "PROCESSED"
	ImportStatusError      ImportStatus = "ERROR"
	ImportStatusDeleted    ImportStatus = "DELETED"
)

// importTransitions lists the allowed target states per source state.
var importTransitions = map[ImportStatus][]ImportStatus{
	ImportStatusCreated:    {ImportStatusAssign, ImportStatusDeleted},
	ImportStatusAssign:     {ImportStatusAssign, ImportStatusProcess, ImportStatusDeleted},
	ImportStatusProcess:    {ImportStatusProcessing, ImportStatusAssign, ImportStatusDeleted},
	ImportStatusProcessing: {ImportStatusProcessed, ImportStatusError},
	ImportStatusProcessed:  {ImportStatusDeleted},
	ImportStatusError:      {ImportStatusDeleted},
}

// CanTransition reports whether an import may move from s to next.
func (s ImportStatus) CanTransition(next ImportStatus) bool {
	for _, allowed := range importTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no background work will touch the import anymore.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusProcessed || s == ImportStatusError || s == ImportStatusDeleted
}

// ValidateTransition returns ErrInvalidTransition wrapped with both states.
func ValidateTransition(from, to ImportStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// MappingEntry binds one column of the uploaded file to a canonical field key.
// The JSON layout is read by the admin UI and must stay stable.
type MappingEntry struct {
	Header    string `json:"header"`
	HeaderKey string `json:"headerKey"`
	Row       string `json:"row"`
	Match     string `json:"match"`
	IsID      string `json:"isId"`
}

// Import is one uploaded spreadsheet and the ledger of its processing.
type Import struct {
	ID        string                            `gorm:"type:text;primaryKey" json:"id"`
	Title     string                            `gorm:"type:text;not null" json:"title"`
	FileRef   string                            `gorm:"type:text" json:"file_ref"`
	Mapping   datatypes.JSONSlice[MappingEntry] `gorm:"type:text" json:"mapping"`
	Status    ImportStatus                      `gorm:"type:text;index:idx_imports_status;default:CREATED" json:"status"`
	Log       StringArray                       `gorm:"type:text" json:"log"`
	Warnings  StringArray                       `gorm:"type:text" json:"warnings"`
	Errors    StringArray                       `gorm:"type:text" json:"errors"`
	OwnerID   string                            `gorm:"type:text;index:idx_imports_owner" json:"owner_id"`
	CreatedAt time.Time                         `json:"created_at"`
	UpdatedAt time.Time                         `json:"updated_at"`
}

// TableName returns the database table name for Import.
func (Import) TableName() string {
	return "imports"
}

// EventImportLog is the ledger of one feed synchronisation run.
type EventImportLog struct {
	ID         string      `gorm:"type:text;primaryKey" json:"id"`
	Log        StringArray `gorm:"type:text" json:"log"`
	Warnings   StringArray `gorm:"type:text" json:"warnings"`
	Errors     StringArray `gorm:"type:text" json:"errors"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName returns the database table name for EventImportLog.
func (EventImportLog) TableName() string {
	return "event_import_logs"
}
