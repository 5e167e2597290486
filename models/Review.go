package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	PropertyID    uint   `json:"propertyID" gorm:"not null;index"`
	UserID        uint   `json:"userID" gorm:"not null;index"`
	User          User   `json:"user"`
	ReservationID uint   `json:"reservationID"`
	Stars         int    `json:"stars"`
	Title         string `json:"title" gorm:"size:100"`
	Body          string `json:"body" gorm:"size:1000"`
}
