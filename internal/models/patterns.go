package models

import "strings"

// PageBlueprint is a recommended page generated during an audit, stored with
// industry tags for cross-tenant pattern learning.
type PageBlueprint struct {
	Base
	AuditID         uint   `gorm:"not null;index" json:"audit_id"`
	BusinessID      uint   `gorm:"not null;index" json:"business_id"`
	IntentCluster   string `gorm:"size:100;index" json:"intent_cluster"`
	URLSlug         string `gorm:"size:255" json:"url_slug"`
	SEOTitle        string `gorm:"size:255" json:"seo_title"`
	MetaDescription string `gorm:"type:text" json:"meta_description"`
	H1              string `gorm:"size:255" json:"h1"`
	OutlineJSON     string `gorm:"type:text" json:"-"`
	TargetKeywords  string `gorm:"type:text" json:"target_keywords"`
	Industry        string `gorm:"size:100;index" json:"industry"`
	BusinessType    string `gorm:"size:50;index" json:"business_type"`
	RegionGroup     string `gorm:"size:100;index" json:"region_group"`
}

// RoadmapTask is one 30-day roadmap item generated during an audit.
type RoadmapTask struct {
	Base
	AuditID       uint   `gorm:"not null;index" json:"audit_id"`
	BusinessID    uint   `gorm:"not null;index" json:"business_id"`
	WeekNumber    int    `gorm:"index" json:"week_number"`
	TaskText      string `gorm:"type:text" json:"task_text"`
	IntentCluster string `gorm:"size:100" json:"intent_cluster,omitempty"`
	Impact        string `gorm:"size:20" json:"impact,omitempty"`
	Effort        string `gorm:"size:20" json:"effort,omitempty"`
	OwnerRole     string `gorm:"size:50" json:"owner_role,omitempty"`
	Industry      string `gorm:"size:100;index" json:"industry"`
	BusinessType  string `gorm:"size:50;index" json:"business_type"`
	RegionGroup   string `gorm:"size:100;index" json:"region_group"`
}

// DeriveRegionGroup buckets a region list into a coarse US region tag for
// pattern matching across tenants.
func DeriveRegionGroup(regions []string) string {
	if len(regions) == 0 {
		return "US_national"
	}

	groups := []struct {
		tag    string
		states []string
	}{
		{"US_southeast", []string{"florida", "georgia", "north carolina", "south carolina", "alabama", "mississippi", "tennessee", "louisiana"}},
		{"US_northeast", []string{"new york", "new jersey", "pennsylvania", "massachusetts", "connecticut", "maine", "vermont", "new hampshire", "rhode island"}},
		{"US_midwest", []string{"ohio", "michigan", "indiana", "illinois", "wisconsin", "minnesota", "iowa", "missouri", "kansas", "nebraska"}},
		{"US_southwest", []string{"texas", "arizona", "new mexico", "oklahoma"}},
		{"US_west", []string{"california", "washington", "oregon", "nevada", "colorado", "utah"}},
	}

	for _, region := range regions {
		lower := strings.ToLower(region)
		for _, g := range groups {
			for _, state := range g.states {
				if strings.Contains(lower, state) {
					return g.tag
				}
			}
		}
	}
	return "US_national"
}
