package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalogue entry. Prices are stored in minor units.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	SKU         string          `json:"sku" gorm:"uniqueIndex;size:64;not null"`
	Brand       string          `json:"brand" gorm:"size:128;not null;index"`
	Model       string          `json:"model" gorm:"size:128;not null"`
	Description string          `json:"description" gorm:"type:text"`
	PriceCents  int64           `json:"price_cents" gorm:"not null;default:0"`
	Price       decimal.Decimal `json:"price" gorm:"-"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SetPrice derives the display price from PriceCents.
func (p *Product) SetPrice() {
	p.Price = decimal.New(p.PriceCents, -2)
}

// AfterFind fills the derived price on every load.
func (p *Product) AfterFind(tx *gorm.DB) error {
	p.SetPrice()
	return nil
}

// AfterCreate fills the derived price so the created row can be echoed back.
func (p *Product) AfterCreate(tx *gorm.DB) error {
	p.SetPrice()
	return nil
}
