package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/samcutley/intelwatch/internal/domain"
	"github.com/samcutley/intelwatch/internal/repository"
)

// Indicator confidence by type. Hashes are near-certain once published,
// network observables rotate, and filenames are trivially reused.
const (
	confidenceHash     = 0.9
	confidenceNetwork  = 0.8
	confidenceIdentity = 0.7
	confidenceFilename = 0.6
)

// indicatorConfidence maps each indicator type to its fixed confidence.
var indicatorConfidence = map[domain.IndicatorType]float64{
	domain.IndicatorHashMD5:     confidenceHash,
	domain.IndicatorHashSHA1:    confidenceHash,
	domain.IndicatorHashSHA256:  confidenceHash,
	domain.IndicatorHashSHA512:  confidenceHash,
	domain.IndicatorIP:          confidenceNetwork,
	domain.IndicatorDomain:      confidenceNetwork,
	domain.IndicatorURL:         confidenceNetwork,
	domain.IndicatorMutex:       confidenceNetwork,
	domain.IndicatorEmail:       confidenceIdentity,
	domain.IndicatorRegistryKey: confidenceIdentity,
	domain.IndicatorFilename:    confidenceFilename,
}

// ConfidenceScore converts the model's qualitative confidence label to a
// numeric score. Unknown labels yield nil.
// Parameters:
//   - label: confidence label from the extraction response.
//
// Returns:
//   - *float64: 0.9 for High, 0.7 for Medium, 0.5 for Low, nil otherwise.
func ConfidenceScore(label string) *float64 {
	var score float64
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		score = 0.9
	case "medium":
		score = 0.7
	case "low":
		score = 0.5
	default:
		return nil
	}
	return &score
}

// BuildAnalysisResult assembles the immutable parent result row from one
// extraction outcome.
// Parameters:
//   - articleID: parent article ID.
//   - outcome: validated extraction outcome.
//
// Returns:
//   - *domain.AnalysisResult: result row ready to persist.
func BuildAnalysisResult(articleID string, outcome *AnalysisOutcome) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:                uuid.New().String(),
		ArticleID:         articleID,
		Payload:           outcome.Payload,
		ConfidenceScore:   ConfidenceScore(outcome.Report.AIAnalysisMetadata.ConfidenceInAnalysis),
		ProcessingSeconds: outcome.ProcessingSeconds,
		Model:             outcome.Report.AIAnalysisMetadata.AIModelUsed,
		PromptVersion:     outcome.Report.AIAnalysisMetadata.PromptVersion,
	}
}

// Decompose flattens a validated report into typed derived records. Blank
// values are dropped; everything else is kept verbatim, including duplicates
// across sections, since rows are append-only per analysis run.
// Parameters:
//   - articleID: parent article ID stamped on every derived row.
//   - report: validated extraction report.
//
// Returns:
//   - *repository.DerivedRecords: grouped rows ready for transactional insert.
func Decompose(articleID string, report *domain.Report) *repository.DerivedRecords {
	derived := &repository.DerivedRecords{}

	iocs := &report.IOCs
	addIndicators(derived, articleID, domain.IndicatorIP, iocs.IPs)
	addIndicators(derived, articleID, domain.IndicatorDomain, iocs.Domains)
	addIndicators(derived, articleID, domain.IndicatorURL, iocs.URLs)
	addIndicators(derived, articleID, domain.IndicatorHashMD5, iocs.Hashes.MD5)
	addIndicators(derived, articleID, domain.IndicatorHashSHA1, iocs.Hashes.SHA1)
	addIndicators(derived, articleID, domain.IndicatorHashSHA256, iocs.Hashes.SHA256)
	addIndicators(derived, articleID, domain.IndicatorHashSHA512, iocs.Hashes.SHA512)
	addIndicators(derived, articleID, domain.IndicatorEmail, iocs.EmailAddresses)
	addIndicators(derived, articleID, domain.IndicatorFilename, iocs.FileNames)
	addIndicators(derived, articleID, domain.IndicatorRegistryKey, iocs.RegistryKeys)
	addIndicators(derived, articleID, domain.IndicatorMutex, iocs.Mutexes)

	vulns := &report.VulnsAndMalware
	for i, cveID := range vulns.CVEIDsMentioned {
		cveID = strings.TrimSpace(cveID)
		if cveID == "" {
			continue
		}
		// Descriptions pair positionally with CVE IDs when the model emits
		// parallel lists; unmatched IDs get no description.
		description := ""
		if i < len(vulns.VulnerabilitiesDesc) {
			description = strings.TrimSpace(vulns.VulnerabilitiesDesc[i])
		}
		derived.CVEs = append(derived.CVEs, domain.CVEReference{
			ID:          uuid.New().String(),
			ArticleID:   articleID,
			CVEID:       cveID,
			Description: description,
		})
	}

	actors := &report.ThreatActorAndTTPs
	for _, name := range actors.AttackerGroupSuspected {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		derived.Actors = append(derived.Actors, domain.ThreatActor{
			ID:                    uuid.New().String(),
			ArticleID:             articleID,
			Name:                  name,
			Motivation:            actors.AttackerMotivation,
			AttributionConfidence: actors.AttributionConfidence,
		})
	}

	for _, name := range vulns.MalwareFamilies {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		derived.MalwareFamilies = append(derived.MalwareFamilies, domain.MalwareFamily{
			ID:        uuid.New().String(),
			ArticleID: articleID,
			Name:      name,
		})
	}

	incident := &report.IncidentDetails
	for _, name := range incident.IndustryTargeted {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		derived.Industries = append(derived.Industries, domain.IndustryRef{
			ID:          uuid.New().String(),
			ArticleID:   articleID,
			Name:        name,
			ImpactLevel: incident.SeverityAssessment,
		})
	}
	for _, name := range incident.RegionsImpacted {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		derived.Regions = append(derived.Regions, domain.RegionRef{
			ID:          uuid.New().String(),
			ArticleID:   articleID,
			Name:        name,
			ImpactLevel: incident.SeverityAssessment,
		})
	}

	return derived
}

func addIndicators(derived *repository.DerivedRecords, articleID string, indicatorType domain.IndicatorType, values []string) {
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		derived.Indicators = append(derived.Indicators, domain.Indicator{
			ID:         uuid.New().String(),
			ArticleID:  articleID,
			Type:       indicatorType,
			Value:      value,
			Confidence: indicatorConfidence[indicatorType],
		})
	}
}
