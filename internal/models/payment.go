package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

type Payment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	OrderID   string    `gorm:"column:order_id;not null;index" json:"order_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"not null" json:"currency"`
	Status    string    `gorm:"not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Order Order `gorm:"foreignKey:OrderID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
