package models

import (
	"time"
)

// Newsletter is a received newsletter-shaped email whose links become articles
type Newsletter struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Email      string    `gorm:"not null;size:255" json:"email"`
	Subject    string    `json:"subject,omitempty"`
	Sender     string    `gorm:"size:255" json:"sender,omitempty"`
	RawContent string    `gorm:"type:text" json:"raw_content,omitempty"`
	Processed  bool      `gorm:"default:false" json:"processed"`
	ReceivedAt time.Time `gorm:"autoCreateTime" json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	Articles []Article `gorm:"foreignKey:NewsletterID" json:"articles,omitempty"`
}

// TableName returns the table name for Newsletter
func (Newsletter) TableName() string {
	return "newsletters"
}
