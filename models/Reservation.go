package models

import (
	"time"

	"gorm.io/gorm"
)

type Reservation struct {
	gorm.Model
	PropertyID uint      `json:"propertyID" gorm:"not null;index"`
	Property   Property  `json:"property"`
	GuestID    uint      `json:"guestID" gorm:"not null;index"`
	Guest      User      `json:"guest" gorm:"foreignKey:GuestID"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	Nights     int       `json:"nights"`
	TotalPrice float32   `json:"totalPrice"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status" gorm:"type:varchar(20);default:'pending';index"` // pending, confirmed, declined, cancelled
}
