package models

import (
	"time"
)

// InboundMessage is a raw email accepted by the SMTP listener and waiting to
// be picked up by the inbox poller
type InboundMessage struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Raw          []byte     `gorm:"not null" json:"-"`
	EnvelopeFrom string     `gorm:"size:512" json:"envelope_from"`
	EnvelopeTo   string     `gorm:"size:2048" json:"envelope_to"`
	Seen         bool       `gorm:"default:false;index" json:"seen"`
	ReceivedAt   time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	SeenAt       *time.Time `json:"seen_at,omitempty"`
}

// TableName returns the table name for InboundMessage
func (InboundMessage) TableName() string {
	return "inbound_messages"
}
