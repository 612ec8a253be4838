package prompts

import (
	"fmt"
	"strings"
)

// Version identifies the extraction prompt revision. Stored on every result so
// downstream consumers can tell which schema generation produced it.
const Version = "cybersec_intel_extractor_v2.0"

// SystemRole is the short role message sent as the system turn.
const SystemRole = `You are an expert cybersecurity intelligence analyst. Respond only with valid JSON.`

// ExtractionPrompt defines the analyst role and output rules for structured
// extraction. The model must return a single JSON object matching SchemaOutline.
const ExtractionPrompt = `You are an expert cybersecurity intelligence analyst AI. Your primary function is to meticulously read cybersecurity articles and extract detailed, structured information according to a precise JSON schema.

You MUST adhere strictly to the JSON structure provided below.
- Your entire response MUST be a single, valid JSON object.
- Do NOT add any fields or keys that are not explicitly defined in the schema.
- Do NOT include any explanatory text, conversation, or markdown formatting before or after the JSON output.
- For any field where information cannot be found in the provided text:
    - Use null for optional string, number, or object fields.
    - Use an empty string "" if a string value is expected but no specific content is found.
    - Use an empty list [] for fields expecting a list if no items are found.
- Pay close attention to the expected data types (string, list of strings, object, boolean) and the descriptions provided for each field.
- Be conservative in your analysis - only extract information that is clearly stated or strongly implied in the text.
- For confidence assessments, consider the quality of sources, specificity of details, and corroboration within the text.

The analysis_timestamp, ai_model_used, and prompt_version fields within ai_analysis_metadata should be populated based on the context of this interaction.

Extract information according to this JSON schema structure. Focus on accuracy and completeness while maintaining the exact structure provided.`

// SchemaOutline is a type-annotated sketch of the expected response, appended
// to the extraction prompt so the model sees every field and its enum values.
const SchemaOutline = `{
  "ai_analysis_metadata": {
    "analysis_timestamp": "string",
    "ai_model_used": "string",
    "prompt_version": "string",
    "confidence_in_analysis": "High | Medium | Low",
    "is_likely_primary_source": "boolean",
    "processing_time_seconds": "number",
    "extraction_completeness_score": "number"
  },
  "source_metadata": {
    "source_url": "string",
    "source_domain": "string",
    "source_reputation_score": "number",
    "author_name": "string",
    "publication_date": "string",
    "last_updated": "string",
    "content_length": "number",
    "source_category": "string"
  },
  "article_summary_and_context": {
    "story_summary": "string",
    "post_type": "Incident Report | Threat Actor Profile | Vulnerability Analysis | Malware Deep Dive | Security Advisory | News Brief | Research Paper | Product Review | Threat Landscape Report | Other",
    "tags": ["string"],
    "story_depth": "Overview/Brief | General Technical | Detailed Analysis | Deep Dive/Forensic | Strategic/Executive Summary",
    "target_audience_relevance": ["string"],
    "key_takeaways": ["string"],
    "language_detected": "string",
    "content_quality_score": "number"
  },
  "incident_event_details": {
    "incident_date_approx": "string",
    "disclosure_date_approx": "string",
    "regions_impacted": ["string"],
    "industry_targeted": ["string"],
    "impact_description": "string",
    "severity_assessment": "Critical | High | Medium | Low | Informational | Not Specified",
    "estimated_financial_impact": "string",
    "affected_user_count": "string",
    "business_disruption_duration": "string"
  },
  "threat_actor_and_ttps": {
    "attacker_group_suspected": ["string"],
    "attacker_motivation": "string",
    "ttps_observed_mitre": ["string"],
    "ttps_observed_descriptive": ["string"],
    "novel_techniques_highlighted": ["string"],
    "attribution_confidence": "High | Medium | Low",
    "campaign_names": ["string"],
    "infrastructure_details": ["string"]
  },
  "vulnerabilities_and_malware": {
    "vulnerabilities_exploited_desc": ["string"],
    "cve_ids_mentioned": ["string"],
    "malware_families_involved": ["string"],
    "targeted_technologies_platforms": ["string"],
    "exploit_availability": "string",
    "patch_availability": "string",
    "zero_day_indicators": ["string"]
  },
  "indicators_of_compromise": {
    "ips": ["string"],
    "domains": ["string"],
    "urls": ["string"],
    "hashes": {
      "md5": ["string"],
      "sha1": ["string"],
      "sha256": ["string"],
      "sha512": ["string"]
    },
    "email_addresses": ["string"],
    "file_names": ["string"],
    "registry_keys": ["string"],
    "mutexes": ["string"],
    "other_iocs_desc": ["string"],
    "yara_rules": ["string"],
    "network_signatures": ["string"]
  },
  "defensive_measures_and_recommendations": {
    "detection_methods_suggested": ["string"],
    "containment_strategies_recommended": ["string"],
    "remediation_strategies_recommended": ["string"],
    "recovery_strategies_recommended": ["string"],
    "general_security_recommendations": ["string"],
    "prevention_measures": ["string"],
    "monitoring_recommendations": ["string"]
  },
  "actionable_intelligence_for_playbooks": {
    "actionability_level": "Immediate Action Required | High Priority Awareness | Operational Review | Informational/Contextual | Strategic Consideration",
    "solution_category_keywords": ["string"],
    "playbook_relevance": ["string"],
    "automation_opportunities": ["string"],
    "integration_points": ["string"],
    "compliance_relevance": ["string"]
  }
}`

// ArticleMeta carries optional article fields woven into the user prompt.
type ArticleMeta struct {
	Title           string
	PublicationDate string
	Author          string
}

// BuildUserPrompt assembles the full user turn: extraction rules, schema,
// source context, and the article body.
func BuildUserPrompt(content, sourceURL string, meta *ArticleMeta) string {
	var b strings.Builder
	b.WriteString(ExtractionPrompt)
	b.WriteString("\n\n")
	b.WriteString(SchemaOutline)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Source URL: %s\n", sourceURL)
	if meta != nil {
		if meta.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", meta.Title)
		}
		if meta.PublicationDate != "" {
			fmt.Fprintf(&b, "Publication Date: %s\n", meta.PublicationDate)
		}
		if meta.Author != "" {
			fmt.Fprintf(&b, "Author: %s\n", meta.Author)
		}
	}
	b.WriteString("\nArticle Content:\n")
	b.WriteString(content)
	b.WriteString("\n\nPlease analyze this cybersecurity article and extract information according to the JSON schema. Return only valid JSON without any additional text or formatting.")
	return b.String()
}
