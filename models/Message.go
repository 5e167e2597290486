package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message is a single direct message between two users. The conversation id is
// derived from the participant pair, never supplied by clients. When a message
// references a property, select property fields are copied onto the row at send
// time; that snapshot is intentionally never refreshed, so conversation history
// keeps rendering even after the listing is edited or removed.
type Message struct {
	gorm.Model
	ConversationID string `json:"conversationID" gorm:"size:64;not null;index"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"-" gorm:"foreignKey:SenderID"`

	ReceiverID uint `json:"receiverID" gorm:"not null;index"`
	Receiver   User `json:"-" gorm:"foreignKey:ReceiverID"`

	Content     string         `json:"content" gorm:"type:text;not null"`
	Attachments datatypes.JSON `json:"attachments"`

	// Optional property context snapshot
	PropertyID       *uint   `json:"propertyID" gorm:"index"`
	PropertyTitle    string  `json:"propertyTitle" gorm:"size:256"`
	PropertyLocation string  `json:"propertyLocation" gorm:"size:256"`
	PropertyPrice    float32 `json:"propertyPrice"`
	PropertyImageURL string  `json:"propertyImageURL" gorm:"size:512"`

	IsRead bool `json:"isRead" gorm:"default:false;index"`
}

type messageParticipant struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarURL"`
}

// Custom JSON marshaling: attachments become an array and preloaded
// sender/receiver rows collapse to display data.
func (m *Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	aux := &struct {
		Attachments []string            `json:"attachments"`
		Sender      *messageParticipant `json:"sender,omitempty"`
		Receiver    *messageParticipant `json:"receiver,omitempty"`
		*Alias
	}{
		Attachments: []string{},
		Alias:       (*Alias)(m),
	}

	if m.Attachments != nil {
		var attachments []string
		if err := json.Unmarshal(m.Attachments, &attachments); err == nil {
			aux.Attachments = attachments
		}
	}

	if m.Sender.ID > 0 {
		aux.Sender = &messageParticipant{ID: m.Sender.ID, DisplayName: m.Sender.DisplayName(), AvatarURL: m.Sender.AvatarURL}
	}
	if m.Receiver.ID > 0 {
		aux.Receiver = &messageParticipant{ID: m.Receiver.ID, DisplayName: m.Receiver.DisplayName(), AvatarURL: m.Receiver.AvatarURL}
	}

	return json.Marshal(aux)
}
