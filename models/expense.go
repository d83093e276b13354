package models

import (
	"time"

	"gorm.io/gorm"
)

// Expense 消费记录模型
// 归属于一个行程（可进一步挂到某个行程日或事件），owner 为垫付人
type Expense struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	GroupID     uint           `json:"group_id" gorm:"index;not null"`
	TripID      uint           `json:"trip_id" gorm:"index;not null"`
	DayID       *uint          `json:"day_id" gorm:"index"`
	EventID     *uint          `json:"event_id" gorm:"index"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"` // 垫付人（小组成员ID）
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Category    string         `json:"category" gorm:"size:50"`
	Description string         `json:"description" gorm:"size:255;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Participants []ExpenseParticipant `json:"participants" gorm:"foreignKey:ExpenseID"`
	LineItems    []ExpenseLineItem    `json:"line_items" gorm:"foreignKey:ExpenseID"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// ExpenseParticipant 消费分摊参与者
// participant_id 与 external_participant_id 二选一：前者是小组成员，后者是无账号的外部分摊人
type ExpenseParticipant struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	ExpenseID             uint      `json:"expense_id" gorm:"index;not null"`
	ParticipantID         *uint     `json:"participant_id" gorm:"index"`
	ExternalParticipantID *uint     `json:"external_participant_id" gorm:"index"`
	ExternalName          string    `json:"external_name" gorm:"size:50"`
	SplitPercentage       float64   `json:"split_percentage" gorm:"type:decimal(5,2);not null"`
	AmountOwed            float64   `json:"amount_owed" gorm:"type:decimal(10,2);not null"` // 派生值 = amount × split_percentage / 100
	CreatedAt             time.Time `json:"created_at"`
}

// TableName 设置表名
func (ExpenseParticipant) TableName() string {
	return "expense_participants"
}

// ExpenseLineItem 消费明细行（可选拆分）
// 存在明细行时，分摊按明细行各自的参与者计算，整单参与者不再生效
type ExpenseLineItem struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ExpenseID   uint      `json:"expense_id" gorm:"index;not null"`
	Description string    `json:"description" gorm:"size:255;not null"`
	Amount      float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	Quantity    int       `json:"quantity" gorm:"default:1"`
	CreatedAt   time.Time `json:"created_at"`

	Participants []LineItemParticipant `json:"participants" gorm:"foreignKey:LineItemID"`
}

// TableName 设置表名
func (ExpenseLineItem) TableName() string {
	return "expense_line_items"
}

// LineItemParticipant 明细行分摊参与者
type LineItemParticipant struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	LineItemID            uint      `json:"line_item_id" gorm:"index;not null"`
	ParticipantID         *uint     `json:"participant_id" gorm:"index"`
	ExternalParticipantID *uint     `json:"external_participant_id" gorm:"index"`
	ExternalName          string    `json:"external_name" gorm:"size:50"`
	SplitPercentage       float64   `json:"split_percentage" gorm:"type:decimal(5,2);not null"`
	AmountOwed            float64   `json:"amount_owed" gorm:"type:decimal(10,2);not null"`
	CreatedAt             time.Time `json:"created_at"`
}

// TableName 设置表名
func (LineItemParticipant) TableName() string {
	return "line_item_participants"
}

// Category 消费类别常量
const (
	CategoryFood          = "餐饮"
	CategoryTransport     = "交通"
	CategoryLodging       = "住宿"
	CategoryTickets       = "门票"
	CategoryShopping      = "购物"
	CategoryEntertainment = "娱乐"
	CategoryOther         = "其他"
)

// GetCategories 获取所有消费类别
func GetCategories() []string {
	return []string{
		CategoryFood,
		CategoryTransport,
		CategoryLodging,
		CategoryTickets,
		CategoryShopping,
		CategoryEntertainment,
		CategoryOther,
	}
}
