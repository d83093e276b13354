package models

import (
	"time"

	"gorm.io/gorm"
)

// Trip 行程模型
type Trip struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	GroupID     uint           `json:"group_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Destination string         `json:"destination" gorm:"size:100"`
	StartDate   time.Time      `json:"start_date" gorm:"not null"`
	EndDate     time.Time      `json:"end_date" gorm:"not null"`
	Notes       string         `json:"notes" gorm:"size:500"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Group       Group          `json:"-" gorm:"foreignKey:GroupID"`
}

// TableName 设置表名
func (Trip) TableName() string {
	return "trips"
}

// TripDay 行程日模型
// 创建行程时按日期范围自动生成，一天一行
type TripDay struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TripID    uint           `json:"trip_id" gorm:"not null;uniqueIndex:idx_trip_date,priority:1"`
	Date      time.Time      `json:"date" gorm:"not null;uniqueIndex:idx_trip_date,priority:2"`
	Title     string         `json:"title" gorm:"size:100"`
	Notes     string         `json:"notes" gorm:"size:500"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Trip      Trip           `json:"-" gorm:"foreignKey:TripID"`
}

// TableName 设置表名
func (TripDay) TableName() string {
	return "trip_days"
}

// Event 日程事件模型
type Event struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TripID    uint           `json:"trip_id" gorm:"index;not null"`
	DayID     *uint          `json:"day_id" gorm:"index"`
	POIID     *uint          `json:"poi_id" gorm:"index"` // 关联的兴趣点，可空
	Title     string         `json:"title" gorm:"size:100;not null"`
	Location  string         `json:"location" gorm:"size:200"`
	StartTime *time.Time     `json:"start_time"`
	EndTime   *time.Time     `json:"end_time"`
	Notes     string         `json:"notes" gorm:"size:500"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Trip      Trip           `json:"-" gorm:"foreignKey:TripID"`
}

// TableName 设置表名
func (Event) TableName() string {
	return "events"
}
