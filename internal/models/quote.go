package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Quote struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	RFQID        string    `gorm:"column:rfq_id;not null;index" json:"rfq_id"`
	SupplierName string    `gorm:"not null" json:"supplier_name"`
	Price        float64   `gorm:"not null" json:"price"`
	Currency     string    `gorm:"not null" json:"currency"`
	LeadTimeDays int       `gorm:"not null" json:"lead_time_days"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`

	// Relationships
	RFQ RFQ `gorm:"foreignKey:RFQID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
