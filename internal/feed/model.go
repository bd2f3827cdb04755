// Package feed synchronises the external event calendar into Event records.
package feed

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ID accepts both JSON strings and numbers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Feed is the calendar document.
type Feed struct {
	Events     map[string]Event     `json:"events"`
	Venues     map[string]Venue     `json:"veranstaltungsorte"`
	Organizers map[string]Organizer `json:"veranstalter"`
	Categories map[string]Category  `json:"kategorien"`
}

// Event is one calendar entry.
type Event struct {
	ID            ID                  `json:"id"`
	Title         string              `json:"titel"`
	TitleEn       string              `json:"titel_en"`
	Description   string              `json:"beschreibung"`
	DescriptionEn string              `json:"beschreibung_en"`
	VenueID       ID                  `json:"veranstaltungsort"`
	OrganizerIDs  []ID                `json:"veranstalter"`
	CategoryIDs   []ID                `json:"kategorien"`
	LastModified  string              `json:"letzte_aenderung"`
	Dates         map[string]DateSpec `json:"termine"`
}

// DateSpec is one occurrence in local wall clock time.
type DateSpec struct {
	Day   string `json:"tag_von"`
	Begin string `json:"uhrzeit_von"`
	End   string `json:"uhrzeit_bis"`
}

// Venue is a place referenced by events.
type Venue struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	NameEn   string `json:"name_en"`
	Street   string `json:"strasse"`
	PostCode string `json:"plz"`
	City     string `json:"ort"`
}

// Organizer runs events.
type Organizer struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Category is an event type.
type Category struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	NameEn string `json:"name_en"`
}

// externalID returns the event id, falling back to its key in the feed.
func (e Event) externalID(key string) string {
	if e.ID != "" {
		return string(e.ID)
	}
	return key
}

// sortedKeys returns map keys in a stable order so runs are reproducible.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
