package domain

// Report is the structured intelligence payload returned by the extraction
// endpoint. All nine top-level sections must be present for a response to be
// accepted; field lists inside a section may be empty.
type Report struct {
	AIAnalysisMetadata     AnalysisMetadata   `json:"ai_analysis_metadata"`
	SourceMetadata         SourceMetadata     `json:"source_metadata"`
	ArticleSummary         ArticleSummary     `json:"article_summary_and_context"`
	IncidentDetails        IncidentDetails    `json:"incident_event_details"`
	ThreatActorAndTTPs     ThreatActorAndTTPs `json:"threat_actor_and_ttps"`
	VulnsAndMalware        VulnsAndMalware    `json:"vulnerabilities_and_malware"`
	IOCs                   IOCs               `json:"indicators_of_compromise"`
	DefensiveMeasures      DefensiveMeasures  `json:"defensive_measures_and_recommendations"`
	ActionableIntelligence ActionableIntel    `json:"actionable_intelligence_for_playbooks"`
}

// RequiredSections lists the top-level keys a valid extraction response must
// carry, in schema order.
var RequiredSections = []string{
	"ai_analysis_metadata",
	"source_metadata",
	"article_summary_and_context",
	"incident_event_details",
	"threat_actor_and_ttps",
	"vulnerabilities_and_malware",
	"indicators_of_compromise",
	"defensive_measures_and_recommendations",
	"actionable_intelligence_for_playbooks",
}

// AnalysisMetadata describes how the extraction itself was produced.
type AnalysisMetadata struct {
	AnalysisTimestamp      string   `json:"analysis_timestamp"`
	AIModelUsed            string   `json:"ai_model_used"`
	PromptVersion          string   `json:"prompt_version"`
	ConfidenceInAnalysis   string   `json:"confidence_in_analysis"`
	IsLikelyPrimarySource  bool     `json:"is_likely_primary_source"`
	ProcessingTimeSeconds  *float64 `json:"processing_time_seconds,omitempty"`
	ExtractionCompleteness *float64 `json:"extraction_completeness_score,omitempty"`
}

// SourceMetadata identifies the analyzed article.
type SourceMetadata struct {
	SourceURL       string   `json:"source_url"`
	SourceDomain    string   `json:"source_domain"`
	ReputationScore *float64 `json:"source_reputation_score,omitempty"`
	AuthorName      string   `json:"author_name,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	LastUpdated     string   `json:"last_updated,omitempty"`
	ContentLength   int      `json:"content_length,omitempty"`
	SourceCategory  string   `json:"source_category,omitempty"`
}

// ArticleSummary captures the article-level context.
type ArticleSummary struct {
	StorySummary        string   `json:"story_summary"`
	PostType            string   `json:"post_type"`
	Tags                []string `json:"tags"`
	StoryDepth          string   `json:"story_depth"`
	TargetAudience      []string `json:"target_audience_relevance"`
	KeyTakeaways        []string `json:"key_takeaways"`
	LanguageDetected    string   `json:"language_detected,omitempty"`
	ContentQualityScore *float64 `json:"content_quality_score,omitempty"`
}

// IncidentDetails captures the who/where/how-bad of the incident.
type IncidentDetails struct {
	IncidentDateApprox   string   `json:"incident_date_approx"`
	DisclosureDateApprox string   `json:"disclosure_date_approx"`
	RegionsImpacted      []string `json:"regions_impacted"`
	IndustryTargeted     []string `json:"industry_targeted"`
	ImpactDescription    string   `json:"impact_description"`
	SeverityAssessment   string   `json:"severity_assessment"`
	FinancialImpact      string   `json:"estimated_financial_impact,omitempty"`
	AffectedUserCount    string   `json:"affected_user_count,omitempty"`
	DisruptionDuration   string   `json:"business_disruption_duration,omitempty"`
}

// ThreatActorAndTTPs captures attribution and observed behavior.
type ThreatActorAndTTPs struct {
	AttackerGroupSuspected []string `json:"attacker_group_suspected"`
	AttackerMotivation     string   `json:"attacker_motivation"`
	TTPsObservedMITRE      []string `json:"ttps_observed_mitre"`
	TTPsObservedDesc       []string `json:"ttps_observed_descriptive"`
	NovelTechniques        []string `json:"novel_techniques_highlighted"`
	AttributionConfidence  string   `json:"attribution_confidence,omitempty"`
	CampaignNames          []string `json:"campaign_names"`
	InfrastructureDetails  []string `json:"infrastructure_details"`
}

// VulnsAndMalware captures exploited vulnerabilities and malware involvement.
type VulnsAndMalware struct {
	VulnerabilitiesDesc []string `json:"vulnerabilities_exploited_desc"`
	CVEIDsMentioned     []string `json:"cve_ids_mentioned"`
	MalwareFamilies     []string `json:"malware_families_involved"`
	TargetedPlatforms   []string `json:"targeted_technologies_platforms"`
	ExploitAvailability string   `json:"exploit_availability,omitempty"`
	PatchAvailability   string   `json:"patch_availability,omitempty"`
	ZeroDayIndicators   []string `json:"zero_day_indicators"`
}

// HashSet groups file hashes by algorithm.
type HashSet struct {
	MD5    []string `json:"md5"`
	SHA1   []string `json:"sha1"`
	SHA256 []string `json:"sha256"`
	SHA512 []string `json:"sha512"`
}

// IOCs holds the extracted indicators of compromise.
type IOCs struct {
	IPs               []string `json:"ips"`
	Domains           []string `json:"domains"`
	URLs              []string `json:"urls"`
	Hashes            HashSet  `json:"hashes"`
	EmailAddresses    []string `json:"email_addresses"`
	FileNames         []string `json:"file_names"`
	RegistryKeys      []string `json:"registry_keys"`
	Mutexes           []string `json:"mutexes"`
	OtherIOCsDesc     []string `json:"other_iocs_desc"`
	YaraRules         []string `json:"yara_rules"`
	NetworkSignatures []string `json:"network_signatures"`
}

// DefensiveMeasures captures recommended defenses.
type DefensiveMeasures struct {
	DetectionMethods   []string `json:"detection_methods_suggested"`
	Containment        []string `json:"containment_strategies_recommended"`
	Remediation        []string `json:"remediation_strategies_recommended"`
	Recovery           []string `json:"recovery_strategies_recommended"`
	GeneralSecurity    []string `json:"general_security_recommendations"`
	PreventionMeasures []string `json:"prevention_measures"`
	Monitoring         []string `json:"monitoring_recommendations"`
}

// ActionableIntel captures playbook-oriented guidance.
type ActionableIntel struct {
	ActionabilityLevel  string   `json:"actionability_level"`
	SolutionKeywords    []string `json:"solution_category_keywords"`
	PlaybookRelevance   []string `json:"playbook_relevance"`
	AutomationOpps      []string `json:"automation_opportunities"`
	IntegrationPoints   []string `json:"integration_points"`
	ComplianceRelevance []string `json:"compliance_relevance"`
}
