package models

import (
	"encoding/json"
	"strings"
	"time"
)

// BusinessType classifies how a business sells.
type BusinessType string

const (
	BusinessTypeEcom         BusinessType = "ecom"
	BusinessTypeLocalService BusinessType = "local_service"
	BusinessTypeB2BService   BusinessType = "b2b_service"
	BusinessTypeOther        BusinessType = "other"
)

// Plan identifies the purchased product tier for a business.
type Plan string

const (
	PlanSnapshot Plan = "snapshot"
	PlanOngoing  Plan = "ongoing"
)

// Business is the subject of GEO audits: a tenant with domains, brand
// aliases, and priority queries derived from its profile.
type Business struct {
	Base
	OwnerUserID          *uint        `gorm:"index" json:"owner_user_id,omitempty"`
	Name                 string       `gorm:"size:255;not null" json:"name"`
	PrimaryDomain        string       `gorm:"size:255;not null" json:"primary_domain"`
	ExtraDomains         string       `gorm:"type:text;default:'[]'" json:"-"`
	BusinessType         BusinessType `gorm:"size:50;default:'local_service'" json:"business_type"`
	Regions              string       `gorm:"type:text;default:'[]'" json:"-"`
	Categories           string       `gorm:"type:text;default:'[]'" json:"-"`
	ContactName          string       `gorm:"size:255" json:"contact_name,omitempty"`
	ContactEmail         string       `gorm:"size:255" json:"contact_email,omitempty"`
	Source               string       `gorm:"size:20;default:'public'" json:"source"`
	Plan                 Plan         `gorm:"size:20;default:'snapshot'" json:"plan"`
	SubscriptionActive   bool         `gorm:"default:false" json:"subscription_active"`
	StripeSubscriptionID string       `gorm:"size:255" json:"-"`
	NextAuditAt          *time.Time   `json:"next_audit_at,omitempty"`
	Owner                *User        `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	Audits               []Audit      `gorm:"foreignKey:BusinessID" json:"audits,omitempty"`
	Purchases            []Purchase   `gorm:"foreignKey:BusinessID" json:"purchases,omitempty"`
}

// GetExtraDomains decodes the JSON-encoded extra domains column.
func (b *Business) GetExtraDomains() []string { return decodeStringList(b.ExtraDomains) }

// SetExtraDomains encodes extra domains into the JSON column.
func (b *Business) SetExtraDomains(domains []string) { b.ExtraDomains = encodeStringList(domains) }

// GetRegions decodes the JSON-encoded regions column.
func (b *Business) GetRegions() []string { return decodeStringList(b.Regions) }

// SetRegions encodes regions into the JSON column.
func (b *Business) SetRegions(regions []string) { b.Regions = encodeStringList(regions) }

// GetCategories decodes the JSON-encoded categories column.
func (b *Business) GetCategories() []string { return decodeStringList(b.Categories) }

// SetCategories encodes categories into the JSON column.
func (b *Business) SetCategories(categories []string) { b.Categories = encodeStringList(categories) }

// AllDomains returns the primary domain followed by any extra domains.
func (b *Business) AllDomains() []string {
	domains := []string{}
	if b.PrimaryDomain != "" {
		domains = append(domains, b.PrimaryDomain)
	}
	for _, d := range b.GetExtraDomains() {
		if d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

// BrandAliases returns the names an AI answer may use for this business:
// the full name plus its first word when the name has several.
func (b *Business) BrandAliases() []string {
	aliases := []string{b.Name}
	parts := strings.Fields(b.Name)
	if len(parts) > 1 {
		aliases = append(aliases, parts[0])
	}
	return aliases
}

// GeoFocus returns the configured regions, defaulting to the United States.
func (b *Business) GeoFocus() []string {
	if regions := b.GetRegions(); len(regions) > 0 {
		return regions
	}
	return []string{"United States"}
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func encodeStringList(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}
