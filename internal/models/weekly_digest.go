package models

import (
	"time"
)

// WeeklyDigest aggregates the processed articles of one 7-day window
type WeeklyDigest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	WeekStart    time.Time  `gorm:"not null;index" json:"week_start"`
	WeekEnd      time.Time  `gorm:"not null" json:"week_end"`
	Summary      string     `gorm:"type:text" json:"summary"`
	ArticleCount int        `json:"article_count"`
	Sent         bool       `gorm:"default:false" json:"sent"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName returns the table name for WeeklyDigest
func (WeeklyDigest) TableName() string {
	return "weekly_digests"
}
