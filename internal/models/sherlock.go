package models

import (
	"encoding/json"
	"time"
)

// Sherlock content types for ingested scans.
const (
	ContentTypeClientSite     = "client_site"
	ContentTypeCompetitorSite = "competitor_site"
)

// SherlockScan records one ingested page: its extracted topics and how many
// vectors were written to the index for it.
type SherlockScan struct {
	Base
	BusinessID  uint   `gorm:"not null;index" json:"business_id"`
	URL         string `gorm:"size:500;not null" json:"url"`
	Title       string `gorm:"size:200" json:"title"`
	ContentType string `gorm:"size:30;not null;index" json:"content_type"`
	Status      string `gorm:"size:20;default:'pending';index" json:"status"`
	TopicsJSON  string `gorm:"type:text" json:"-"`
	VectorID    string `gorm:"size:100;index" json:"vector_id"`
	VectorCount int    `gorm:"default:0" json:"vector_count"`
}

// Topic is one semantic topic extracted from page content.
type Topic struct {
	Topic          string   `json:"topic"`
	Category       string   `json:"category"`
	Depth          int      `json:"depth"`
	ExamplePhrases []string `json:"example_phrases,omitempty"`
}

// GetTopics decodes the extracted topics column.
func (s *SherlockScan) GetTopics() []Topic {
	if s.TopicsJSON == "" {
		return nil
	}
	var topics []Topic
	if err := json.Unmarshal([]byte(s.TopicsJSON), &topics); err != nil {
		return nil
	}
	return topics
}

// SetTopics encodes topics into the JSON column.
func (s *SherlockScan) SetTopics(topics []Topic) error {
	raw, err := json.Marshal(topics)
	if err != nil {
		return err
	}
	s.TopicsJSON = string(raw)
	return nil
}

// SherlockCompetitor is a rival site tracked for semantic gap analysis.
type SherlockCompetitor struct {
	Base
	BusinessID uint   `gorm:"not null;index" json:"business_id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	Domain     string `gorm:"size:255;not null" json:"domain"`
	Status     string `gorm:"size:20;default:'active';index" json:"status"`
}

// MissionStatus tracks a remediation mission lifecycle.
type MissionStatus string

const (
	MissionStatusOpen MissionStatus = "open"
	MissionStatusDone MissionStatus = "done"
)

// SherlockMission is an actionable content task derived from a semantic gap.
type SherlockMission struct {
	Base
	BusinessID        uint          `gorm:"not null;index" json:"business_id"`
	GapAnalysisID     string        `gorm:"size:60;index" json:"gap_analysis_id"`
	MissionType       string        `gorm:"size:40" json:"mission_type"`
	Title             string        `gorm:"size:255;not null" json:"title"`
	Description       string        `gorm:"type:text" json:"description"`
	Topic             string        `gorm:"size:255;index" json:"topic"`
	Priority          string        `gorm:"size:20;default:'medium'" json:"priority"`
	RecommendedAction string        `gorm:"type:text" json:"recommended_action"`
	EstimatedImpact   string        `gorm:"size:40" json:"estimated_impact"`
	TargetURLSlug     string        `gorm:"size:255" json:"target_url,omitempty"`
	Status            MissionStatus `gorm:"size:20;default:'open';index" json:"status"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}
