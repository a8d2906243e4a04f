package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order lifecycle. Only pending_payment and paid are reachable today;
// in_production and shipped are reserved for fulfillment tracking.
const (
	OrderStatusCreated        = "created"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusInProduction   = "in_production"
	OrderStatusShipped        = "shipped"
)

type Order struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	RFQID     string    `gorm:"column:rfq_id;not null;index" json:"rfq_id"`
	QuoteID   string    `gorm:"column:quote_id;not null;index" json:"quote_id"`
	Status    string    `gorm:"not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	RFQ      RFQ       `gorm:"foreignKey:RFQID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Quote    Quote     `gorm:"foreignKey:QuoteID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Payments []Payment `gorm:"foreignKey:OrderID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
