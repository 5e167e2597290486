package models

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"
)

type Property struct {
	gorm.Model
	HostID       uint    `json:"hostID"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PropertyType string  `json:"propertyType"` // entire_place, private_room, shared_room
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zip          string  `json:"zip"`
	Country      string  `json:"country"`
	Lat          float32 `json:"lat"`
	Lng          float32 `json:"lng"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float32 `json:"bathrooms"`
	NightlyPrice float32 `json:"nightlyPrice"`
	CleaningFee  float32 `json:"cleaningFee"`
	Currency     string  `json:"currency"`
	Images       string  `json:"images"` // JSON array of URLs
	IsActive     *bool   `json:"isActive"`
	Rating       float32 `json:"rating"`

	Reviews      []Review      `json:"reviews"`
	Reservations []Reservation `json:"reservations"`
	Host         User          `json:"host" gorm:"foreignKey:HostID;references:ID"`

	// Admin moderation fields
	Status      string `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending, approved, rejected
	ReviewNotes string `json:"reviewNotes" gorm:"type:text"`
	IsFlagged   bool   `json:"isFlagged" gorm:"default:false;index"`
	FlagReason  string `json:"flagReason" gorm:"type:text"`
}

// ImageURLs decodes the Images JSON column. Returns nil when empty or malformed.
func (p *Property) ImageURLs() []string {
	if p.Images == "" {
		return nil
	}
	var images []string
	if err := json.Unmarshal([]byte(p.Images), &images); err != nil {
		return nil
	}
	return images
}

// Location is the display form used in snapshots and search results.
func (p *Property) Location() string {
	parts := make([]string, 0, 2)
	if p.City != "" {
		parts = append(parts, p.City)
	}
	if p.Country != "" {
		parts = append(parts, p.Country)
	}
	return strings.Join(parts, ", ")
}

// Custom JSON marshaling to convert the Images string to an array
func (p *Property) MarshalJSON() ([]byte, error) {
	type Alias Property
	aux := &struct {
		Images []string `json:"images"`
		Host   *User    `json:"host,omitempty"`
		*Alias
	}{
		Images: []string{},
		Host:   nil,
		Alias:  (*Alias)(p),
	}

	if images := p.ImageURLs(); images != nil {
		aux.Images = images
	}

	// Only include the host when it is loaded, and strip its properties
	// to avoid a circular reference
	if p.Host.ID > 0 {
		hostCopy := p.Host
		hostCopy.Properties = nil
		aux.Host = &hostCopy
	}

	return json.Marshal(aux)
}
