package models

import (
	"time"

	"gorm.io/gorm"
)

// PointOfInterest 兴趣点模型
type PointOfInterest struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	GroupID   uint           `json:"group_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"size:100;not null"`
	Address   string         `json:"address" gorm:"size:200"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`
	Notes     string         `json:"notes" gorm:"size:500"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Group     Group          `json:"-" gorm:"foreignKey:GroupID"`
}

// TableName 设置表名
func (PointOfInterest) TableName() string {
	return "points_of_interest"
}
