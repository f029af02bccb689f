package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/config"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

func newTestService() *Service {
	return New(config.GuardrailConfig{
		TerminologyMap: map[string]string{
			"invandrare": "person med utländsk bakgrund",
			"tiggare":    "person som tigger",
		},
		DenyList: []string{"förbjudet-ord"},
	})
}

func TestValidateUnchangedWhenNoTermsPresent(t *testing.T) {
	s := newTestService()
	result := s.Validate("Folkmängden ökade under året.")
	assert.Equal(t, types.GuardrailUnchanged, result.Status)
	assert.Empty(t, result.Corrections)
}

func TestValidateCorrectsDisallowedTerm(t *testing.T) {
	s := newTestService()
	result := s.Validate("Antalet invandrare okade.")
	require.Equal(t, types.GuardrailCorrected, result.Status)
	assert.Contains(t, result.CorrectedText, "person med utländsk bakgrund")
	assert.NotContains(t, result.CorrectedText, "invandrare")
	require.Len(t, result.Corrections, 1)
	assert.Equal(t, "invandrare", result.Corrections[0].Original)
}

func TestValidateIsCaseInsensitive(t *testing.T) {
	s := newTestService()
	result := s.Validate("Invandrare ar en grupp.")
	assert.Equal(t, types.GuardrailCorrected, result.Status)
	assert.Contains(t, result.CorrectedText, "person med utländsk bakgrund")
}

func TestValidateRefusesOnDenyListTerm(t *testing.T) {
	s := newTestService()
	result := s.Validate("Detta ar ett förbjudet-ord i texten.")
	assert.Equal(t, types.GuardrailRefused, result.Status)
}

func TestValidatePreservesCitationMarkers(t *testing.T) {
	s := newTestService()
	result := s.Validate("Antalet invandrare okade enligt källan [1].")
	assert.Contains(t, result.CorrectedText, "[1]")
}

func TestValidateAppliesMultipleDistinctTerms(t *testing.T) {
	s := newTestService()
	result := s.Validate("Bade invandrare och tiggare namns.")
	require.Equal(t, types.GuardrailCorrected, result.Status)
	assert.Len(t, result.Corrections, 2)
}
