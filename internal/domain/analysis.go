package domain

import "time"

// IndicatorType classifies an extracted indicator of compromise.
type IndicatorType string

const (
	IndicatorIP          IndicatorType = "ip"
	IndicatorDomain      IndicatorType = "domain"
	IndicatorURL         IndicatorType = "url"
	IndicatorHashMD5     IndicatorType = "hash_md5"
	IndicatorHashSHA1    IndicatorType = "hash_sha1"
	IndicatorHashSHA256  IndicatorType = "hash_sha256"
	IndicatorHashSHA512  IndicatorType = "hash_sha512"
	IndicatorEmail       IndicatorType = "email"
	IndicatorFilename    IndicatorType = "filename"
	IndicatorRegistryKey IndicatorType = "registry_key"
	IndicatorMutex       IndicatorType = "mutex"
)

// AnalysisResult holds one validated extraction payload for an article.
// Rows are immutable once written; the latest row is authoritative for display.
type AnalysisResult struct {
	ID                string    `gorm:"type:text;primaryKey" json:"id"`
	ArticleID         string    `gorm:"type:text;not null;index:idx_analysis_article" json:"article_id"`
	Payload           string    `gorm:"type:text;not null" json:"payload"`
	ConfidenceScore   *float64  `json:"confidence_score,omitempty"`
	ProcessingSeconds float64   `json:"processing_seconds"`
	Model             string    `gorm:"type:text" json:"model"`
	PromptVersion     string    `gorm:"type:text" json:"prompt_version"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName returns the database table name for AnalysisResult.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (AnalysisResult) TableName() string {
	return "analysis_results"
}

// Indicator is one extracted IOC, append-only, weakly referencing its article.
type Indicator struct {
	ID         string        `gorm:"type:text;primaryKey" json:"id"`
	ArticleID  string        `gorm:"type:text;not null;index:idx_indicators_article" json:"article_id"`
	Type       IndicatorType `gorm:"type:text;not null;index:idx_indicators_type" json:"type"`
	Value      string        `gorm:"type:text;not null" json:"value"`
	Confidence float64       `json:"confidence"`
	CreatedAt  time.Time     `json:"created_at"`
}

// TableName returns the database table name for Indicator.
func (Indicator) TableName() string {
	return "indicators"
}

// CVEReference is one CVE mention paired with its description when available.
type CVEReference struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	ArticleID   string    `gorm:"type:text;not null;index:idx_cves_article" json:"article_id"`
	CVEID       string    `gorm:"column:cve_id;type:text;not null;index:idx_cves_cve" json:"cve_id"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for CVEReference.
func (CVEReference) TableName() string {
	return "cve_references"
}

// ThreatActor is one suspected actor attribution for an article.
type ThreatActor struct {
	ID                    string    `gorm:"type:text;primaryKey" json:"id"`
	ArticleID             string    `gorm:"type:text;not null;index:idx_actors_article" json:"article_id"`
	Name                  string    `gorm:"type:text;not null" json:"name"`
	Motivation            string    `gorm:"type:text" json:"motivation"`
	AttributionConfidence string    `gorm:"type:text" json:"attribution_confidence"`
	CreatedAt             time.Time `json:"created_at"`
}

// TableName returns the database table name for ThreatActor.
func (ThreatActor) TableName() string {
	return "threat_actors"
}

// MalwareFamily is one malware family mention for an article.
type MalwareFamily struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	ArticleID string    `gorm:"type:text;not null;index:idx_malware_article" json:"article_id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MalwareFamily.
func (MalwareFamily) TableName() string {
	return "malware_families"
}

// IndustryRef is one targeted industry paired with the incident severity.
type IndustryRef struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	ArticleID   string    `gorm:"type:text;not null;index:idx_industries_article" json:"article_id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	ImpactLevel string    `gorm:"type:text" json:"impact_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for IndustryRef.
func (IndustryRef) TableName() string {
	return "industries"
}

// RegionRef is one impacted region paired with the incident severity.
type RegionRef struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	ArticleID   string    `gorm:"type:text;not null;index:idx_regions_article" json:"article_id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	ImpactLevel string    `gorm:"type:text" json:"impact_level"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for RegionRef.
func (RegionRef) TableName() string {
	return "regions"
}
