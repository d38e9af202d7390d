package sherlock

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"ekkoscope/internal/errors"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"
	"ekkoscope/internal/providers"
	"ekkoscope/internal/sitescan"
	"ekkoscope/internal/uuid"
)

const (
	minContentLength  = 100
	maxMissingTopics  = 15
	maxWeakTopics     = 10
	maxCompetitorURLs = 5

	// semanticCoverageThreshold is the similarity score at which existing
	// client content counts as covering a topic even when the topic name
	// never matched.
	semanticCoverageThreshold = 0.85
)

// Embedder produces an embedding vector for a text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type chatCompleter interface {
	Complete(ctx context.Context, messages []providers.ChatMessage, jsonMode bool) (*providers.ChatResult, error)
}

// Engine runs ingestion, gap analysis, and mission generation.
type Engine struct {
	db       *gorm.DB
	embedder Embedder
	index    VectorIndex
	chat     chatCompleter
	scanner  *sitescan.Scanner
}

// NewEngine wires the semantic gap engine. embedder and index may be nil
// when the vector store is not configured; the engine then reports disabled.
func NewEngine(db *gorm.DB, embedder Embedder, index VectorIndex, chat *providers.ChatClient, scanner *sitescan.Scanner) *Engine {
	e := &Engine{db: db, embedder: embedder, index: index, scanner: scanner}
	if chat != nil {
		e.chat = chat
	}
	return e
}

// Enabled reports whether the vector store side of the engine is usable.
func (e *Engine) Enabled() bool {
	return e != nil && e.embedder != nil && e.index != nil
}

// IngestResult reports one ingested URL.
type IngestResult struct {
	ScanID   uint           `json:"scan_id"`
	URL      string         `json:"url"`
	VectorID string         `json:"vector_id"`
	Topics   []models.Topic `json:"topics"`
}

// IngestKnowledge scrapes a URL, extracts its topics, embeds a content
// digest, and stores both the vector and the scan record.
func (e *Engine) IngestKnowledge(ctx context.Context, url, contentType string, businessID uint) (*IngestResult, error) {
	if !e.Enabled() {
		return nil, errors.ErrSherlockDisabled
	}

	snapshot := e.scanner.FetchSnapshot(ctx, []string{url}, nil)
	if len(snapshot.Pages) == 0 {
		return nil, errors.WithMessage(errors.ErrInvalidInput, fmt.Sprintf("could not fetch %s", url))
	}
	page := snapshot.Pages[0]

	if len(strings.TrimSpace(page.TextExcerpt)) < minContentLength {
		return nil, errors.ErrNoClientContent
	}

	topics := e.ExtractTopics(ctx, page.TextExcerpt,
		fmt.Sprintf("Website: %s | Type: %s", page.Title, contentType))

	topicNames := make([]string, 0, len(topics))
	for _, t := range topics {
		topicNames = append(topicNames, t.Topic)
	}

	digest := fmt.Sprintf("Title: %s\nDescription: %s\nHeadings: %s\nTopics: %s\nContent: %s",
		page.Title, page.MetaDescription,
		strings.Join(page.Headings, " | "),
		strings.Join(topicNames, ", "),
		truncate(page.TextExcerpt, 4000))

	embedding, err := e.embedder.EmbedText(ctx, digest)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	vectorID := fmt.Sprintf("sherlock_%s_%d_%s", contentType, businessID, uuid.Short(8))
	metadata := map[string]any{
		"type":        contentType,
		"url":         url,
		"business_id": fmt.Sprintf("%d", businessID),
		"title":       truncate(page.Title, 200),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := e.index.Upsert(ctx, []Vector{{ID: vectorID, Values: embedding, Metadata: metadata}}); err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	scan := &models.SherlockScan{
		BusinessID:  businessID,
		URL:         url,
		Title:       truncate(page.Title, 200),
		ContentType: contentType,
		Status:      "completed",
		VectorID:    vectorID,
		VectorCount: 1,
	}
	if err := scan.SetTopics(topics); err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}
	if err := e.db.Create(scan).Error; err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	logger.Get().Infow("sherlock ingested page",
		"url", url, "topics", len(topics), "business_id", businessID)

	return &IngestResult{
		ScanID:   scan.ID,
		URL:      url,
		VectorID: vectorID,
		Topics:   topics,
	}, nil
}

const topicPromptTemplate = `Analyze this website content and extract the main TOPICS covered.
Not keywords - identify the semantic concepts, themes, and subject areas.

For each topic, provide:
1. topic: A clear topic name (2-5 words)
2. category: The broader category (e.g., "services", "problems", "solutions", "credentials")
3. depth: How thoroughly covered (1-10)
4. example_phrases: 2-3 key phrases from the content

Context: %s

Content:
%s

Return a JSON object: {"topics": [{"topic": "Storm Damage Insurance", "category": "services", "depth": 8, "example_phrases": ["hurricane coverage", "emergency claims"]}]}

Extract 10-20 meaningful topics. Focus on business-relevant themes.`

type topicEnvelope struct {
	Topics []models.Topic `json:"topics"`
}

// ExtractTopics asks the model for the semantic topics of a page. Failures
// return an empty slice; ingestion proceeds without topics.
func (e *Engine) ExtractTopics(ctx context.Context, text, context_ string) []models.Topic {
	if e.chat == nil {
		return nil
	}

	prompt := fmt.Sprintf(topicPromptTemplate, context_, truncate(text, 6000))
	answer, err := e.chat.Complete(ctx, []providers.ChatMessage{{Role: "user", Content: prompt}}, true)
	if err != nil {
		logger.Get().Warnw("sherlock topic extraction failed", "error", err)
		return nil
	}

	var envelope topicEnvelope
	if err := json.Unmarshal([]byte(providers.ExtractJSON(answer.Content)), &envelope); err != nil {
		logger.Get().Warnw("sherlock could not parse topics", "error", err)
		return nil
	}
	return envelope.Topics
}

// MissingTopic is a topic competitors cover that the client does not.
type MissingTopic struct {
	Topic              string   `json:"topic"`
	CompetitorCoverage int      `json:"competitor_coverage"`
	Category           string   `json:"category"`
	Depth              int      `json:"depth"`
	ExamplePhrases     []string `json:"example_phrases,omitempty"`
	FoundAt            []string `json:"found_at,omitempty"`
	Priority           string   `json:"priority"`
}

// WeakTopic is a topic the client covers less than competitors do.
type WeakTopic struct {
	Topic              string `json:"topic"`
	YourCoverage       int    `json:"your_coverage"`
	CompetitorCoverage int    `json:"competitor_coverage"`
	Gap                int    `json:"gap"`
}

// Coverage summarizes the two topic spaces.
type Coverage struct {
	YourTopics          int `json:"your_topics"`
	CompetitorTopics    int `json:"competitor_topics"`
	Overlap             int `json:"overlap"`
	UniqueToCompetitors int `json:"unique_to_competitors"`
}

// GapAnalysis is the result of comparing topic spaces.
type GapAnalysis struct {
	BusinessID    uint           `json:"client_business_id"`
	MissingTopics []MissingTopic `json:"missing_topics"`
	WeakTopics    []WeakTopic    `json:"weak_topics"`
	Coverage      Coverage       `json:"coverage_comparison"`
	GapScore      int            `json:"gap_score"`
	AnalysisID    string         `json:"analysis_id"`
}

// AnalyzeGap compares the client's topic space to the competitors' and
// computes the gap score: 100 - covered/competitorTopics*100.
func (e *Engine) AnalyzeGap(ctx context.Context, businessID uint) (*GapAnalysis, error) {
	var clientScans []models.SherlockScan
	if err := e.db.WithContext(ctx).
		Where("business_id = ? AND content_type = ? AND status = ?",
			businessID, models.ContentTypeClientSite, "completed").
		Find(&clientScans).Error; err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}
	if len(clientScans) == 0 {
		return nil, errors.ErrNoClientContent
	}

	clientCounts := make(map[string]int)
	for _, scan := range clientScans {
		for _, t := range scan.GetTopics() {
			clientCounts[strings.ToLower(t.Topic)]++
		}
	}

	var competitorScans []models.SherlockScan
	if err := e.db.WithContext(ctx).
		Where("business_id = ? AND content_type = ? AND status = ?",
			businessID, models.ContentTypeCompetitorSite, "completed").
		Find(&competitorScans).Error; err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	type topicInfo struct {
		count    int
		depth    int
		category string
		phrases  []string
		sources  []string
	}
	competitorInfo := make(map[string]*topicInfo)
	for _, scan := range competitorScans {
		for _, t := range scan.GetTopics() {
			name := strings.ToLower(t.Topic)
			info, ok := competitorInfo[name]
			if !ok {
				info = &topicInfo{depth: t.Depth, category: t.Category, phrases: t.ExamplePhrases}
				if info.category == "" {
					info.category = "unknown"
				}
				competitorInfo[name] = info
			}
			info.count++
			info.sources = append(info.sources, scan.URL)
		}
	}

	analysis := &GapAnalysis{
		BusinessID:    businessID,
		MissingTopics: []MissingTopic{},
		WeakTopics:    []WeakTopic{},
		AnalysisID:    fmt.Sprintf("gap_%d_%s", businessID, time.Now().UTC().Format("20060102150405")),
	}

	covered := 0
	for topic, info := range competitorInfo {
		clientCount, has := clientCounts[topic]
		if has {
			covered++
			if clientCount < info.count {
				analysis.WeakTopics = append(analysis.WeakTopics, WeakTopic{
					Topic:              titleCase(topic),
					YourCoverage:       clientCount,
					CompetitorCoverage: info.count,
					Gap:                info.count - clientCount,
				})
			}
			continue
		}

		priority := "medium"
		if info.count >= 2 || info.depth >= 7 {
			priority = "high"
		}
		analysis.MissingTopics = append(analysis.MissingTopics, MissingTopic{
			Topic:              titleCase(topic),
			CompetitorCoverage: info.count,
			Category:           info.category,
			Depth:              info.depth,
			ExamplePhrases:     info.phrases,
			FoundAt:            firstStrings(info.sources, 3),
			Priority:           priority,
		})
	}

	sort.Slice(analysis.MissingTopics, func(i, j int) bool {
		a, b := analysis.MissingTopics[i], analysis.MissingTopics[j]
		if a.CompetitorCoverage != b.CompetitorCoverage {
			return a.CompetitorCoverage > b.CompetitorCoverage
		}
		if a.Depth != b.Depth {
			return a.Depth > b.Depth
		}
		return a.Topic < b.Topic
	})
	sort.Slice(analysis.WeakTopics, func(i, j int) bool {
		if analysis.WeakTopics[i].Gap != analysis.WeakTopics[j].Gap {
			return analysis.WeakTopics[i].Gap > analysis.WeakTopics[j].Gap
		}
		return analysis.WeakTopics[i].Topic < analysis.WeakTopics[j].Topic
	})

	if len(analysis.MissingTopics) > maxMissingTopics {
		analysis.MissingTopics = analysis.MissingTopics[:maxMissingTopics]
	}
	if len(analysis.WeakTopics) > maxWeakTopics {
		analysis.WeakTopics = analysis.WeakTopics[:maxWeakTopics]
	}

	e.refineMissingTopics(ctx, businessID, analysis.MissingTopics)

	totalCompetitor := len(competitorInfo)
	denominator := totalCompetitor
	if denominator == 0 {
		denominator = 1
	}
	analysis.GapScore = 100 - int(float64(covered)/float64(denominator)*100)
	analysis.Coverage = Coverage{
		YourTopics:          len(clientCounts),
		CompetitorTopics:    totalCompetitor,
		Overlap:             covered,
		UniqueToCompetitors: totalCompetitor - covered,
	}

	logger.Get().Infow("sherlock gap analysis complete",
		"business_id", businessID,
		"missing_topics", len(analysis.MissingTopics),
		"gap_score", analysis.GapScore,
	)
	return analysis, nil
}

// refineMissingTopics checks high-priority missing topics against the vector
// index: client content semantically close to the topic demotes it to medium,
// since the site covers the theme under different wording. Lookup failures
// leave the topic untouched.
func (e *Engine) refineMissingTopics(ctx context.Context, businessID uint, topics []MissingTopic) {
	if !e.Enabled() {
		return
	}

	filter := map[string]any{
		"business_id": fmt.Sprintf("%d", businessID),
		"type":        models.ContentTypeClientSite,
	}
	for i := range topics {
		if topics[i].Priority != "high" {
			continue
		}

		probe := topics[i].Topic
		if len(topics[i].ExamplePhrases) > 0 {
			probe += ": " + strings.Join(topics[i].ExamplePhrases, ", ")
		}
		vec, err := e.embedder.EmbedText(ctx, probe)
		if err != nil {
			logger.Get().Warnw("sherlock topic embed failed", "topic", topics[i].Topic, "error", err)
			continue
		}

		matches, err := e.index.Query(ctx, vec, filter, 1)
		if err != nil {
			logger.Get().Warnw("sherlock coverage lookup failed", "topic", topics[i].Topic, "error", err)
			continue
		}
		if len(matches) > 0 && matches[0].Score >= semanticCoverageThreshold {
			topics[i].Priority = "medium"
		}
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateMissions turns a gap analysis into persisted missions: one per
// missing topic (capped at 10) plus one per weak topic (capped at 5).
func (e *Engine) GenerateMissions(ctx context.Context, businessID uint, analysis *GapAnalysis) ([]models.SherlockMission, error) {
	if analysis == nil {
		var err error
		analysis, err = e.AnalyzeGap(ctx, businessID)
		if err != nil {
			return nil, err
		}
	}

	var missions []models.SherlockMission

	missing := analysis.MissingTopics
	if len(missing) > 10 {
		missing = missing[:10]
	}
	for i, topic := range missing {
		slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(topic.Topic), "-"), "-")

		var action, missionType string
		switch topic.Category {
		case "services":
			action = fmt.Sprintf("Create a dedicated service page for '%s' with detailed pricing and FAQs", topic.Topic)
			missionType = "create_page"
		case "problems":
			action = fmt.Sprintf("Develop content addressing '%s' - explain solutions and your expertise", topic.Topic)
			missionType = "content_expansion"
		case "credentials":
			action = fmt.Sprintf("Highlight your '%s' credentials with case studies and certifications", topic.Topic)
			missionType = "trust_building"
		default:
			action = fmt.Sprintf("Create comprehensive content about '%s' to match competitor coverage", topic.Topic)
			missionType = "content_creation"
		}

		missions = append(missions, models.SherlockMission{
			BusinessID:        businessID,
			GapAnalysisID:     analysis.AnalysisID,
			MissionType:       missionType,
			Priority:          topic.Priority,
			Title:             fmt.Sprintf("Cover '%s' to close semantic gap", topic.Topic),
			Description:       fmt.Sprintf("Competitors are ranking for '%s' queries. You are semantically invisible on this topic.", topic.Topic),
			Topic:             topic.Topic,
			RecommendedAction: action,
			EstimatedImpact:   fmt.Sprintf("+%d%% AI visibility", 5+i),
			TargetURLSlug:     "/" + slug,
			Status:            models.MissionStatusOpen,
		})
	}

	weak := analysis.WeakTopics
	if len(weak) > 5 {
		weak = weak[:5]
	}
	for _, topic := range weak {
		missions = append(missions, models.SherlockMission{
			BusinessID:        businessID,
			GapAnalysisID:     analysis.AnalysisID,
			MissionType:       "content_expansion",
			Priority:          "medium",
			Title:             fmt.Sprintf("Strengthen '%s' coverage", topic.Topic),
			Description:       fmt.Sprintf("Competitors mention '%s' %d more times. Expand your content depth.", topic.Topic, topic.Gap),
			Topic:             topic.Topic,
			RecommendedAction: fmt.Sprintf("Add more detailed content about '%s' - FAQs, case studies, or blog posts", topic.Topic),
			EstimatedImpact:   "+3% AI visibility",
			Status:            models.MissionStatusOpen,
		})
	}

	if len(missions) > 0 {
		if err := e.db.WithContext(ctx).Create(&missions).Error; err != nil {
			return nil, errors.Wrap(errors.ErrInternalServer, err)
		}
	}

	logger.Get().Infow("sherlock generated missions",
		"business_id", businessID, "missions", len(missions))
	return missions, nil
}

// AddCompetitor registers a competitor for tracking. Adding the same domain
// twice returns the existing record.
func (e *Engine) AddCompetitor(ctx context.Context, businessID uint, name, domain string) (*models.SherlockCompetitor, error) {
	var existing models.SherlockCompetitor
	err := e.db.WithContext(ctx).
		Where("business_id = ? AND domain = ?", businessID, domain).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	competitor := &models.SherlockCompetitor{
		BusinessID: businessID,
		Name:       name,
		Domain:     domain,
		Status:     "active",
	}
	if err := e.db.WithContext(ctx).Create(competitor).Error; err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}
	return competitor, nil
}

// FullAnalysis is the result of the end-to-end pipeline.
type FullAnalysis struct {
	ClientIngested      bool                     `json:"client_ingested"`
	CompetitorsIngested int                      `json:"competitors_ingested"`
	GapAnalysis         *GapAnalysis             `json:"gap_analysis"`
	Missions            []models.SherlockMission `json:"missions"`
}

// RunFullAnalysis ingests the client site and up to five competitor sites,
// runs the gap analysis, and generates missions.
func (e *Engine) RunFullAnalysis(ctx context.Context, businessID uint, clientURL string, competitorURLs []string) (*FullAnalysis, error) {
	result := &FullAnalysis{}

	if _, err := e.IngestKnowledge(ctx, clientURL, models.ContentTypeClientSite, businessID); err != nil {
		return nil, err
	}
	result.ClientIngested = true

	if len(competitorURLs) > maxCompetitorURLs {
		competitorURLs = competitorURLs[:maxCompetitorURLs]
	}
	for _, compURL := range competitorURLs {
		if _, err := e.IngestKnowledge(ctx, compURL, models.ContentTypeCompetitorSite, businessID); err != nil {
			logger.Get().Warnw("sherlock competitor ingest failed", "url", compURL, "error", err)
			continue
		}
		result.CompetitorsIngested++

		domain := strings.TrimPrefix(strings.TrimPrefix(compURL, "https://"), "http://")
		if i := strings.Index(domain, "/"); i >= 0 {
			domain = domain[:i]
		}
		if _, err := e.AddCompetitor(ctx, businessID, domain, domain); err != nil {
			logger.Get().Warnw("sherlock competitor save failed", "domain", domain, "error", err)
		}
	}

	analysis, err := e.AnalyzeGap(ctx, businessID)
	if err != nil {
		return nil, err
	}
	result.GapAnalysis = analysis

	missions, err := e.GenerateMissions(ctx, businessID, analysis)
	if err != nil {
		return nil, err
	}
	result.Missions = missions

	return result, nil
}

// MissionsForBusiness lists a business's missions, optionally filtered by
// status, newest first.
func (e *Engine) MissionsForBusiness(ctx context.Context, businessID uint, status string) ([]models.SherlockMission, error) {
	query := e.db.WithContext(ctx).Where("business_id = ?", businessID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var missions []models.SherlockMission
	if err := query.Order("created_at DESC").Find(&missions).Error; err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}
	return missions, nil
}

// CompleteMission marks a mission done.
func (e *Engine) CompleteMission(ctx context.Context, missionID uint) (*models.SherlockMission, error) {
	var mission models.SherlockMission
	if err := e.db.WithContext(ctx).First(&mission, missionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrMissionNotFound
		}
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}

	now := time.Now().UTC()
	mission.Status = models.MissionStatusDone
	mission.CompletedAt = &now
	if err := e.db.WithContext(ctx).Save(&mission).Error; err != nil {
		return nil, errors.Wrap(errors.ErrInternalServer, err)
	}
	return &mission, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func firstStrings(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
