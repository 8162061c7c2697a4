package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MeasurementUnit says how a product is sold: by the piece or by weight.
// Weight products are priced per kilogram and ordered in grams.
type MeasurementUnit string

const (
	MeasurementUnitUnit   MeasurementUnit = "unit"
	MeasurementUnitWeight MeasurementUnit = "weight"
)

// ParseMeasurementUnit converts a stored tag into a MeasurementUnit.
func ParseMeasurementUnit(s string) (MeasurementUnit, error) {
	u := MeasurementUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("unknown measurement type %q", s)
	}
	return u, nil
}

func (u MeasurementUnit) Valid() bool {
	return u == MeasurementUnitUnit || u == MeasurementUnitWeight
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url,omitempty"`
	Enabled   bool      `json:"enabled"`
	LeySeca   bool      `json:"ley_seca"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryInput carries create and partial-update fields. Nil fields are left
// unchanged on update.
type CategoryInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	ImageURL *string `json:"image_url" validate:"omitempty,max=500"`
	Enabled  *bool   `json:"enabled"`
	LeySeca  *bool   `json:"ley_seca"`
}

// Product prices are stored tax-inclusive, in USD.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	CategoryID      string          `json:"category_id"`
	ImageURL        string          `json:"image_url,omitempty"`
	MeasurementType MeasurementUnit `json:"measurement_type"`
	ExternalCode    string          `json:"external_code,omitempty"`
	Stock           decimal.Decimal `json:"stock"`
	Featured        bool            `json:"featured"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ProductInput struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Price           *decimal.Decimal `json:"price"`
	CategoryID      *string          `json:"category_id"`
	ImageURL        *string          `json:"image_url" validate:"omitempty,max=500"`
	MeasurementType *MeasurementUnit `json:"measurement_type"`
	ExternalCode    *string          `json:"external_code" validate:"omitempty,max=100"`
	Stock           *decimal.Decimal `json:"stock"`
	Featured        *bool            `json:"featured"`
}

type ProductFilter struct {
	CategoryID   string
	FeaturedOnly bool
	Limit        int
}

type Sponsor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LogoURL      string    `json:"logo_url,omitempty"`
	WebsiteURL   string    `json:"website_url,omitempty"`
	Enabled      bool      `json:"enabled"`
	DisplayOrder int       `json:"order"`
	CreatedAt    time.Time `json:"created_at"`
}

type SponsorInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	LogoURL      *string `json:"logo_url" validate:"omitempty,max=500"`
	WebsiteURL   *string `json:"website_url" validate:"omitempty,url,max=500"`
	Enabled      *bool   `json:"enabled"`
	DisplayOrder *int    `json:"order" validate:"omitempty,min=0"`
}

// SiteSettings is the single row of store-wide configuration. TaxPercentage
// is the IVA rate already folded into every catalog price.
type SiteSettings struct {
	ID              string          `json:"id"`
	SiteName        string          `json:"site_name"`
	SiteDescription string          `json:"site_description"`
	ContactPhone    string          `json:"contact_phone"`
	ContactEmail    string          `json:"contact_email"`
	ContactAddress  string          `json:"contact_address"`
	WhatsAppNumber  string          `json:"whatsapp_number,omitempty"`
	TaxPercentage   decimal.Decimal `json:"tax_percentage"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type SiteSettingsInput struct {
	SiteName        *string          `json:"site_name" validate:"omitempty,min=1,max=200"`
	SiteDescription *string          `json:"site_description" validate:"omitempty,max=1000"`
	ContactPhone    *string          `json:"contact_phone" validate:"omitempty,max=30"`
	ContactEmail    *string          `json:"contact_email" validate:"omitempty,email"`
	ContactAddress  *string          `json:"contact_address" validate:"omitempty,max=500"`
	WhatsAppNumber  *string          `json:"whatsapp_number" validate:"omitempty,max=30"`
	TaxPercentage   *decimal.Decimal `json:"tax_percentage"`
}

// WhatsAppContact returns the number orders are sent to: the dedicated
// WhatsApp number when set, otherwise the contact phone.
func (s *SiteSettings) WhatsAppContact() string {
	if s.WhatsAppNumber != "" {
		return s.WhatsAppNumber
	}
	return s.ContactPhone
}
