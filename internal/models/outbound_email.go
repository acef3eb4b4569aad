package models

import (
	"time"
)

// Outbound email kinds
const (
	OutboundTypeArticle = "article"
	OutboundTypeDigest  = "digest"
)

// OutboundEmail records one delivery attempt to the reading device
type OutboundEmail struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ToEmail      string     `gorm:"not null;size:255" json:"to_email"`
	Subject      string     `gorm:"not null" json:"subject"`
	EmailType    string     `gorm:"size:32" json:"email_type"`
	ArticleID    *uint      `gorm:"index" json:"article_id,omitempty"`
	Sent         bool       `gorm:"default:false" json:"sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for OutboundEmail
func (OutboundEmail) TableName() string {
	return "outbound_emails"
}
