package models

import (
	"time"

	"gorm.io/datatypes"
)

// EmailType is the category an inbound email was classified as
type EmailType string

const (
	EmailTypeFiveFilters EmailType = "fivefilters"
	EmailTypeNewsletter  EmailType = "newsletter"
	EmailTypeGeneric     EmailType = "generic"
	EmailTypeError       EmailType = "error"
	EmailTypeUnknown     EmailType = "unknown"
)

// EmailArchive is the verbatim record of one inbound email, unique by message id.
// Only replay mutates it, and replay never touches RawEmail.
type EmailArchive struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	MessageID        string         `gorm:"uniqueIndex;not null;size:998" json:"message_id"`
	Sender           string         `gorm:"size:512;index" json:"sender"`
	Recipient        string         `gorm:"size:512" json:"recipient,omitempty"`
	Subject          string         `json:"subject,omitempty"`
	RawEmail         string         `gorm:"type:text" json:"raw_email,omitempty"`
	Headers          datatypes.JSON `json:"headers,omitempty"`
	BodyText         string         `gorm:"type:text" json:"body_text,omitempty"`
	BodyHTML         string         `gorm:"type:text" json:"body_html,omitempty"`
	Attachments      datatypes.JSON `json:"attachments,omitempty"`
	EmailType        EmailType      `gorm:"size:32;index" json:"email_type"`
	ReceivedAt       time.Time      `gorm:"index" json:"received_at"`
	Processed        bool           `gorm:"default:false" json:"processed"`
	ReplayCount      int            `gorm:"default:0" json:"replay_count"`
	LastReplayedAt   *time.Time     `json:"last_replayed_at,omitempty"`
	Tags             string         `json:"tags,omitempty"`
	ProcessingResult datatypes.JSON `json:"processing_result,omitempty"`
}

// TableName returns the table name for EmailArchive
func (EmailArchive) TableName() string {
	return "email_archives"
}

// EmailArchiveListItem is a lightweight version for list views
type EmailArchiveListItem struct {
	ID          uint      `json:"id"`
	MessageID   string    `json:"message_id"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject,omitempty"`
	EmailType   EmailType `json:"email_type"`
	ReceivedAt  time.Time `json:"received_at"`
	Processed   bool      `json:"processed"`
	ReplayCount int       `json:"replay_count"`
	Tags        string    `json:"tags,omitempty"`
}

// AttachmentInfo describes an attachment without its payload
type AttachmentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ProcessingOutcome is the serialized result of routing an email
type ProcessingOutcome struct {
	Type      EmailType `json:"type"`
	Processed bool      `json:"processed"`
	Error     string    `json:"error,omitempty"`
	URLs      []string  `json:"urls,omitempty"`
}
