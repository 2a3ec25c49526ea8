package models

import "time"

// News is an announcement written by staff and read by the mobile app.
type News struct {
	ID          int64     `json:"id" gorm:"column:id;primaryKey"`
	Title       string    `json:"title" gorm:"column:title;not null"`
	Description string    `json:"description" gorm:"column:description;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (News) TableName() string {
	return "news"
}
