package models

import "time"

// Industry classifies a business at registration time.
type Industry string

const (
	IndustryTechnology  Industry = "technology"
	IndustryRetail      Industry = "retail"
	IndustryHealthcare  Industry = "healthcare"
	IndustryEducation   Industry = "education"
	IndustryFinance     Industry = "finance"
	IndustryHospitality Industry = "hospitality"
	IndustryOther       Industry = "other"
)

// Valid reports whether the industry is one of the known values.
func (i Industry) Valid() bool {
	switch i {
	case IndustryTechnology, IndustryRetail, IndustryHealthcare,
		IndustryEducation, IndustryFinance, IndustryHospitality, IndustryOther:
		return true
	}
	return false
}

// Business represents a registered tenant stored in the businesses table.
// Created once at registration and immutable afterwards in this service.
type Business struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Industry    *Industry `db:"industry" json:"industry,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	DomainURL   *string   `db:"domain_url" json:"domain_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
