package models

import "gorm.io/gorm"

// Complaint is filed by a user against a listing (or the platform in general
// when PropertyID is nil).
type Complaint struct {
	gorm.Model
	ReporterID uint      `json:"reporterID" gorm:"not null;index"`
	Reporter   User      `json:"reporter" gorm:"foreignKey:ReporterID"`
	PropertyID *uint     `json:"propertyID" gorm:"index"`
	Property   *Property `json:"property,omitempty"`
	Subject    string    `json:"subject" gorm:"size:256"`
	Body       string    `json:"body" gorm:"type:text"`
	Status     string    `json:"status" gorm:"type:varchar(20);default:'open';index"` // open, resolved, dismissed
	Resolution string    `json:"resolution" gorm:"type:text"`
}

// Appeal contests a resolved or dismissed complaint. One canonical field
// contract: the JSON key for the parent complaint is always "complaintID".
type Appeal struct {
	gorm.Model
	ComplaintID uint      `json:"complaintID" gorm:"not null;index"`
	Complaint   Complaint `json:"complaint"`
	AppellantID uint      `json:"appellantID" gorm:"not null;index"`
	Appellant   User      `json:"appellant" gorm:"foreignKey:AppellantID"`
	Body        string    `json:"body" gorm:"type:text"`
	Status      string    `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending, accepted, rejected
	Decision    string    `json:"decision" gorm:"type:text"`
}
