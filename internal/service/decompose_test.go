package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcutley/intelwatch/internal/domain"
)

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		label string
		want  *float64
	}{
		{"High", floatPtr(0.9)},
		{"medium", floatPtr(0.7)},
		{" Low ", floatPtr(0.5)},
		{"Unknown", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := ConfidenceScore(tt.label)
		if tt.want == nil {
			assert.Nil(t, got, "label %q", tt.label)
		} else {
			require.NotNil(t, got, "label %q", tt.label)
			assert.Equal(t, *tt.want, *got)
		}
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestDecomposeIndicatorConfidence(t *testing.T) {
	report := &domain.Report{}
	report.IOCs = domain.IOCs{
		IPs:     []string{"203.0.113.7"},
		Domains: []string{"evil.example.com"},
		URLs:    []string{"https://evil.example.com/payload"},
		Hashes: domain.HashSet{
			MD5:    []string{"aa"},
			SHA1:   []string{"bb"},
			SHA256: []string{"cc"},
			SHA512: []string{"dd"},
		},
		EmailAddresses: []string{"phish@example.com"},
		FileNames:      []string{"dropper.exe"},
		RegistryKeys:   []string{`HKLM\Software\Evil`},
		Mutexes:        []string{"Global\\evilmutex"},
	}

	derived := Decompose("article-1", report)
	require.Len(t, derived.Indicators, 11)

	byType := map[domain.IndicatorType]domain.Indicator{}
	for _, ind := range derived.Indicators {
		byType[ind.Type] = ind
		assert.Equal(t, "article-1", ind.ArticleID)
		assert.NotEmpty(t, ind.ID)
	}

	assert.Equal(t, 0.9, byType[domain.IndicatorHashMD5].Confidence)
	assert.Equal(t, 0.9, byType[domain.IndicatorHashSHA1].Confidence)
	assert.Equal(t, 0.9, byType[domain.IndicatorHashSHA256].Confidence)
	assert.Equal(t, 0.9, byType[domain.IndicatorHashSHA512].Confidence)
	assert.Equal(t, 0.8, byType[domain.IndicatorIP].Confidence)
	assert.Equal(t, 0.8, byType[domain.IndicatorDomain].Confidence)
	assert.Equal(t, 0.8, byType[domain.IndicatorURL].Confidence)
	assert.Equal(t, 0.8, byType[domain.IndicatorMutex].Confidence)
	assert.Equal(t, 0.7, byType[domain.IndicatorEmail].Confidence)
	assert.Equal(t, 0.7, byType[domain.IndicatorRegistryKey].Confidence)
	assert.Equal(t, 0.6, byType[domain.IndicatorFilename].Confidence)
}

func TestDecomposeSkipsBlankValues(t *testing.T) {
	report := &domain.Report{}
	report.IOCs.IPs = []string{"", "  ", "203.0.113.9"}

	derived := Decompose("article-1", report)
	require.Len(t, derived.Indicators, 1)
	assert.Equal(t, "203.0.113.9", derived.Indicators[0].Value)
}

func TestDecomposeCVEPositionalPairing(t *testing.T) {
	report := &domain.Report{}
	report.VulnsAndMalware = domain.VulnsAndMalware{
		CVEIDsMentioned:     []string{"CVE-2026-0001", "CVE-2026-0002", "CVE-2026-0003"},
		VulnerabilitiesDesc: []string{"RCE in router firmware", "Privilege escalation"},
	}

	derived := Decompose("article-1", report)
	require.Len(t, derived.CVEs, 3)
	assert.Equal(t, "RCE in router firmware", derived.CVEs[0].Description)
	assert.Equal(t, "Privilege escalation", derived.CVEs[1].Description)
	assert.Empty(t, derived.CVEs[2].Description, "unmatched CVE gets no description")
}

func TestDecomposeActorsAndContext(t *testing.T) {
	report := &domain.Report{}
	report.ThreatActorAndTTPs = domain.ThreatActorAndTTPs{
		AttackerGroupSuspected: []string{"APT-00", "FIN-99"},
		AttackerMotivation:     "Financial gain",
		AttributionConfidence:  "Medium",
	}
	report.VulnsAndMalware.MalwareFamilies = []string{"ExampleRAT"}
	report.IncidentDetails = domain.IncidentDetails{
		RegionsImpacted:    []string{"Europe", "North America"},
		IndustryTargeted:   []string{"Healthcare"},
		SeverityAssessment: "Critical",
	}

	derived := Decompose("article-1", report)

	require.Len(t, derived.Actors, 2)
	assert.Equal(t, "Financial gain", derived.Actors[0].Motivation)
	assert.Equal(t, "Medium", derived.Actors[0].AttributionConfidence)

	require.Len(t, derived.MalwareFamilies, 1)
	assert.Equal(t, "ExampleRAT", derived.MalwareFamilies[0].Name)

	require.Len(t, derived.Industries, 1)
	assert.Equal(t, "Critical", derived.Industries[0].ImpactLevel)

	require.Len(t, derived.Regions, 2)
	assert.Equal(t, "Critical", derived.Regions[0].ImpactLevel)
}

func TestBuildAnalysisResult(t *testing.T) {
	report := &domain.Report{}
	report.AIAnalysisMetadata.ConfidenceInAnalysis = "High"
	report.AIAnalysisMetadata.AIModelUsed = "qwen3-8b"
	report.AIAnalysisMetadata.PromptVersion = "cybersec_intel_extractor_v2.0"

	outcome := &AnalysisOutcome{
		Report:            report,
		Payload:           `{"ok":true}`,
		Attempts:          2,
		ProcessingSeconds: 3.5,
	}

	result := BuildAnalysisResult("article-1", outcome)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "article-1", result.ArticleID)
	assert.Equal(t, `{"ok":true}`, result.Payload)
	require.NotNil(t, result.ConfidenceScore)
	assert.Equal(t, 0.9, *result.ConfidenceScore)
	assert.Equal(t, 3.5, result.ProcessingSeconds)
	assert.Equal(t, "qwen3-8b", result.Model)
	assert.Equal(t, "cybersec_intel_extractor_v2.0", result.PromptVersion)
}
