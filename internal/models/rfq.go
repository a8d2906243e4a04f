package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RFQ struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"column:user_id;not null;index" json:"user_id"`
	Material      string    `gorm:"not null" json:"material"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	Tolerance     *string   `json:"tolerance"`
	Roughness     *string   `json:"roughness"`
	PartMarking   bool      `json:"part_marking"`
	Certification *string   `json:"certification"`
	Notes         *string   `json:"notes"`
	CADFilename   *string   `gorm:"column:cad_filename" json:"cad_filename"`
	CADFileID     *string   `gorm:"column:cad_file_id" json:"cad_file_id"`
	CreatedAt     time.Time `json:"created_at"`

	// Relationships
	User   User    `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Quotes []Quote `gorm:"foreignKey:RFQID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Orders []Order `gorm:"foreignKey:RFQID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (RFQ) TableName() string {
	return "rfqs"
}

func (r *RFQ) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
