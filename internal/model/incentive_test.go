package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructured(t *testing.T) {
	raw := []byte(`{
		"objective": "Apoiar a transição digital das PME",
		"target_sectors": ["Indústria", "Turismo"],
		"innovation_focus": true,
		"digital_transformation_focus": true
	}`)

	s := ParseStructured(raw)
	require.NotNil(t, s)
	assert.Equal(t, "Apoiar a transição digital das PME", s.Objective)
	assert.Equal(t, []string{"Indústria", "Turismo"}, s.TargetSectors)
	assert.True(t, s.InnovationFocus)
	assert.True(t, s.DigitalFocus)
	assert.False(t, s.SustainabilityFocus)
}

func TestParseStructuredMalformed(t *testing.T) {
	assert.Nil(t, ParseStructured(nil))
	assert.Nil(t, ParseStructured([]byte("")))
	assert.Nil(t, ParseStructured([]byte("{not json")))
}

func TestParseEligibility(t *testing.T) {
	raw := []byte(`{"min_employees": 10, "region": "Norte", "sectors": ["C", "F"]}`)

	m := ParseEligibility(raw)
	require.NotNil(t, m)
	assert.Equal(t, "Norte", m["region"])
	assert.Equal(t, "10", m["min_employees"])
	assert.JSONEq(t, `["C","F"]`, m["sectors"])
}

func TestParseEligibilityMalformed(t *testing.T) {
	assert.Nil(t, ParseEligibility(nil))
	assert.Nil(t, ParseEligibility([]byte("[1,2]")))
}
