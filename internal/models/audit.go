package models

import (
	"encoding/json"
	"time"
)

// AuditStatus tracks an audit through its pipeline.
type AuditStatus string

const (
	AuditStatusPending AuditStatus = "pending"
	AuditStatusRunning AuditStatus = "running"
	AuditStatusDone    AuditStatus = "done"
	AuditStatusError   AuditStatus = "error"
)

// Audit is a single visibility analysis run for a business. The summary and
// suggestions payloads are stored as JSON text alongside normalized
// AuditQuery rows.
type Audit struct {
	Base
	BusinessID            uint         `gorm:"not null;index" json:"business_id"`
	Channel               string       `gorm:"size:20;default:'self_serve'" json:"channel"`
	Status                AuditStatus  `gorm:"size:20;default:'pending';index" json:"status"`
	VisibilitySummaryJSON string       `gorm:"type:text" json:"-"`
	SuggestionsJSON       string       `gorm:"type:text" json:"-"`
	SiteInspectorUsed     bool         `gorm:"default:false" json:"site_inspector_used"`
	PDFPath               string       `gorm:"size:500" json:"pdf_path,omitempty"`
	ReportTextPath        string       `gorm:"size:500" json:"report_text_path,omitempty"`
	CompletedAt           *time.Time   `json:"completed_at,omitempty"`
	Business              *Business    `gorm:"foreignKey:BusinessID" json:"business,omitempty"`
	Queries               []AuditQuery `gorm:"foreignKey:AuditID;constraint:OnDelete:CASCADE" json:"queries,omitempty"`
}

// GetVisibilitySummary decodes the stored visibility summary payload.
func (a *Audit) GetVisibilitySummary() (map[string]any, error) {
	return decodeJSONMap(a.VisibilitySummaryJSON)
}

// SetVisibilitySummary encodes the visibility summary payload.
func (a *Audit) SetVisibilitySummary(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	a.VisibilitySummaryJSON = string(raw)
	return nil
}

// GetSuggestions decodes the stored suggestions payload.
func (a *Audit) GetSuggestions() (map[string]any, error) {
	return decodeJSONMap(a.SuggestionsJSON)
}

// SetSuggestions encodes the suggestions payload.
func (a *Audit) SetSuggestions(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	a.SuggestionsJSON = string(raw)
	return nil
}

func decodeJSONMap(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AuditQuery is a normalized query probed during an audit, tagged with its
// commercial intent.
type AuditQuery struct {
	Base
	AuditID           uint                    `gorm:"not null;index" json:"audit_id"`
	QueryText         string                  `gorm:"size:500;not null;index" json:"query_text"`
	Intent            string                  `gorm:"size:50;index" json:"intent"`
	Region            string                  `gorm:"size:100" json:"region,omitempty"`
	TargetFound       bool                    `gorm:"default:false" json:"target_found"`
	VisibilityResults []QueryVisibilityResult `gorm:"foreignKey:AuditQueryID;constraint:OnDelete:CASCADE" json:"visibility_results,omitempty"`
}

// QueryVisibilityResult records one brand an AI provider recommended for a query.
type QueryVisibilityResult struct {
	Base
	AuditQueryID uint   `gorm:"not null;index" json:"audit_query_id"`
	Provider     string `gorm:"size:50;not null;index" json:"provider"`
	BrandName    string `gorm:"size:255;index" json:"brand_name"`
	BrandURL     string `gorm:"size:500" json:"brand_url,omitempty"`
	Reason       string `gorm:"type:text" json:"reason,omitempty"`
	Rank         *int   `json:"rank,omitempty"`
	IsTarget     bool   `gorm:"default:false" json:"is_target"`
}
