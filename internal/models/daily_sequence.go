package models

import "time"

// DailySequence is the per-day counter behind display ids.
type DailySequence struct {
	Day       string    `gorm:"size:16;primaryKey" json:"day"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
