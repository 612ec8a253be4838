package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SourceType categorizes a content source.
// Values include SourceTypeNews, SourceTypeBlog, SourceTypeAdvisory, and SourceTypeResearch.
type SourceType string

const (
	SourceTypeNews     SourceType = "news"
	SourceTypeBlog     SourceType = "blog"
	SourceTypeAdvisory SourceType = "advisory"
	SourceTypeResearch SourceType = "research"
)

// FieldRule selects one named field from a listing item. When Attr is empty
// the element text is used, otherwise the named attribute.
type FieldRule struct {
	Selector string `json:"selector" mapstructure:"selector"`
	Attr     string `json:"attr,omitempty" mapstructure:"attr"`
}

// ListingRules describes how to extract candidate articles from a listing page.
type ListingRules struct {
	ItemSelector      string               `json:"item_selector" mapstructure:"item_selector"`
	Fields            map[string]FieldRule `json:"fields" mapstructure:"fields"`
	ExcludedSelectors []string             `json:"excluded_selectors,omitempty" mapstructure:"excluded_selectors"`
}

// ArticleRules describes how to extract the body from an article page.
type ArticleRules struct {
	ContentSelector   string   `json:"content_selector" mapstructure:"content_selector"`
	ExcludedSelectors []string `json:"excluded_selectors,omitempty" mapstructure:"excluded_selectors"`
}

// CrawlRules is the per-source structural extraction configuration.
// PageURLTemplate uses the {page} placeholder; page 1 is always the base URL.
type CrawlRules struct {
	Listing         *ListingRules `json:"listing,omitempty" mapstructure:"listing"`
	Article         *ArticleRules `json:"article,omitempty" mapstructure:"article"`
	PageURLTemplate string        `json:"page_url_template,omitempty" mapstructure:"page_url_template"`
	MaxPages        int           `json:"max_pages,omitempty" mapstructure:"max_pages"`
}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the rules.
//   - error: non-nil if marshaling fails.
func (r CrawlRules) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
//
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (r *CrawlRules) Scan(value interface{}) error {
	if value == nil {
		*r = CrawlRules{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan CrawlRules")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, r)
}

// Source represents one external content source and its extraction configuration.
type Source struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	Name          string     `gorm:"type:text;not null;uniqueIndex:idx_sources_name" json:"name"`
	BaseURL       string     `gorm:"type:text;not null" json:"base_url"`
	Type          SourceType `gorm:"type:text;not null" json:"type"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	Rules         CrawlRules `gorm:"type:text" json:"rules"`
	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Source.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Source) TableName() string {
	return "sources"
}
