package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LocationStatus represents the editorial state of a location.
type LocationStatus string

const (
	LocationStatusImported         LocationStatus = "IMPORTED"
	LocationStatusImportedWarnings LocationStatus = "IMPORTEDWARNINGS"
	LocationStatusPublished        LocationStatus = "PUBLISHED"
)

// Address is the postal address of a location.
type Address struct {
	Co          string `gorm:"type:text" json:"co"`
	Street1     string `gorm:"type:text" json:"street1"`
	Street2     string `gorm:"type:text" json:"street2"`
	HouseNumber string `gorm:"type:text" json:"house_number"`
	City        string `gorm:"type:text" json:"city"`
	PostCode    string `gorm:"type:text" json:"post_code"`
}

// Equal compares all address parts.
func (a Address) Equal(b Address) bool {
	return a == b
}

// IsEmpty reports whether no address part is set.
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// GeoLocation is a WGS84 coordinate pair.
type GeoLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoCandidate is one ranked match returned by the geocoding provider.
type GeoCandidate struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Name        string  `json:"name,omitempty"`
	Street      string  `json:"street,omitempty"`
	HouseNumber string  `json:"house_number,omitempty"`
	PostCode    string  `json:"postcode,omitempty"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// Point returns the candidate coordinates.
func (c GeoCandidate) Point() GeoLocation {
	return GeoLocation{Lat: c.Lat, Lng: c.Lng}
}

// Location is a cultural venue shown on the map.
type Location struct {
	ID                   string                            `gorm:"type:text;primaryKey" json:"id"`
	TitleDe              string                            `gorm:"type:text" json:"title_de"`
	TitleEn              string                            `gorm:"type:text" json:"title_en"`
	DescriptionDe        string                            `gorm:"type:text" json:"description_de"`
	DescriptionEn        string                            `gorm:"type:text" json:"description_en"`
	Address              Address                           `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Lat                  *float64                          `json:"lat,omitempty"`
	Lng                  *float64                          `json:"lng,omitempty"`
	GeoCandidates        datatypes.JSONSlice[GeoCandidate] `gorm:"type:text" json:"geo_candidates"`
	Phone                string                            `gorm:"type:text" json:"phone"`
	Email                string                            `gorm:"type:text" json:"email"`
	Website              string                            `gorm:"type:text" json:"website"`
	Facebook             string                            `gorm:"type:text" json:"facebook"`
	Instagram            string                            `gorm:"type:text" json:"instagram"`
	Twitter              string                            `gorm:"type:text" json:"twitter"`
	YouTube              string                            `gorm:"type:text" json:"youtube"`
	Status               LocationStatus                    `gorm:"type:text;index:idx_locations_status" json:"status"`
	ImportedLocationHash string                            `gorm:"type:text;index:idx_locations_hash" json:"imported_location_hash"`
	ImportID             string                            `gorm:"type:text" json:"import_id,omitempty"`
	ImportedRowID        string                            `gorm:"type:text" json:"imported_row_id,omitempty"`
	OwnerID              string                            `gorm:"type:text" json:"owner_id,omitempty"`
	Terms                []Term                            `gorm:"many2many:location_terms" json:"terms,omitempty"`
	CreatedAt            time.Time                         `json:"created_at"`
	UpdatedAt            time.Time                         `json:"updated_at"`
	DeletedAt            gorm.DeletedAt                    `gorm:"index" json:"-"`
}

// TableName returns the database table name for Location.
func (Location) TableName() string {
	return "locations"
}

// GeoLocation returns the resolved point or nil when the location has no coordinates.
func (l *Location) GeoLocation() *GeoLocation {
	if l.Lat == nil || l.Lng == nil {
		return nil
	}
	return &GeoLocation{Lat: *l.Lat, Lng: *l.Lng}
}

// SetGeoLocation stores p, clearing the coordinates when p is nil.
func (l *Location) SetGeoLocation(p *GeoLocation) {
	if p == nil {
		l.Lat, l.Lng = nil, nil
		return
	}
	lat, lng := p.Lat, p.Lng
	l.Lat, l.Lng = &lat, &lng
}
