package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

func TestExtractJSONFromCodeFence(t *testing.T) {
	raw := "```json\n{\"mode\":\"EVIDENCE\",\"svar\":\"hej\"}\n```"
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"mode":"EVIDENCE","svar":"hej"}`, got)
}

func TestExtractJSONWithLeadingProse(t *testing.T) {
	raw := `Here is my answer: {"mode":"ASSIST","svar":"ok"} Hope that helps.`
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"mode":"ASSIST","svar":"ok"}`, got)
}

func TestExtractJSONWithNestedBraces(t *testing.T) {
	raw := `{"svar":"enligt § 5 {undantag}","kallor":[]}`
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestExtractJSONIgnoresBraceInsideString(t *testing.T) {
	raw := `prefix {"svar":"a } b"} suffix`
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"svar":"a } b"}`, got)
}

func TestExtractJSONNoOpeningBrace(t *testing.T) {
	_, err := ExtractJSON("not json at all")
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestExtractJSONUnbalanced(t *testing.T) {
	_, err := ExtractJSON(`{"svar":"truncated`)
	require.Error(t, err)
}

func TestParseRoundTrip(t *testing.T) {
	raw := `{"mode":"EVIDENCE","saknas_underlag":false,"svar":"Folkmängden ar 10 521 556 [1].","kallor":[{"doc_id":"d1","chunk_id":"c1","citat":"10 521 556","loc":"p.1"}],"fakta_utan_kalla":[]}`
	answer, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, types.ModeEvidence, answer.Mode)
	assert.False(t, answer.SaknasUnderlag)
	require.Len(t, answer.Kallor, 1)
	assert.Equal(t, "d1", answer.Kallor[0].DocID)
}

func TestParseFailsOnInvalidJSON(t *testing.T) {
	_, err := Parse(`{"mode": EVIDENCE broken}`)
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestValidateRejectsModeMismatch(t *testing.T) {
	answer := types.StructuredAnswer{Mode: types.ModeAssist, Svar: "hej"}
	err := Validate(answer, types.ModeEvidence)
	require.Error(t, err)
	var me *MalformedError
	assert.ErrorAs(t, err, &me)
}

func TestValidateRejectsLeakageInSvar(t *testing.T) {
	answer := types.StructuredAnswer{
		Mode: types.ModeEvidence,
		Svar: "Enligt min arbetsanteckning är detta sant.",
	}
	err := Validate(answer, types.ModeEvidence)
	require.Error(t, err)
	var me *MalformedError
	assert.ErrorAs(t, err, &me)
}

func TestValidateRejectsLeakageInCitation(t *testing.T) {
	answer := types.StructuredAnswer{
		Mode:   types.ModeEvidence,
		Svar:   "Se källan [1].",
		Kallor: []types.Citation{{DocID: "d1", ChunkID: "c1", Citat: "fakta_utan_kalla injected"}},
	}
	err := Validate(answer, types.ModeEvidence)
	require.Error(t, err)
}

func TestValidateAllowsLegitimateArbetsanteckningField(t *testing.T) {
	// The arbetsanteckning field itself is a legitimate part of the schema
	// (spec §3) and is retained for logging; only its leakage into a
	// visible text field is a security violation (spec §4.6 scenario 4).
	answer := types.StructuredAnswer{
		Mode:             types.ModeEvidence,
		Svar:             "Läckage",
		Arbetsanteckning: "INTERNAL scratch notes, never shown to caller",
	}
	err := Validate(answer, types.ModeEvidence)
	assert.NoError(t, err)
}

func TestStripRemovesInternalNote(t *testing.T) {
	answer := types.StructuredAnswer{Mode: types.ModeEvidence, Arbetsanteckning: "secret"}
	stripped := Strip(answer)
	assert.Empty(t, stripped.Arbetsanteckning)
}

func TestParseAndValidateHappyPath(t *testing.T) {
	raw := "```json\n" + `{"mode":"CHAT","saknas_underlag":false,"svar":"Hej, hur kan jag hjälpa dig?","kallor":[],"fakta_utan_kalla":[]}` + "\n```"
	answer, err := ParseAndValidate(raw, types.ModeChat)
	require.NoError(t, err)
	assert.Equal(t, "Hej, hur kan jag hjälpa dig?", answer.Svar)
}

func TestParseAndValidatePropagatesMalformed(t *testing.T) {
	raw := `{"mode":"ASSIST","svar":"ok"}`
	_, err := ParseAndValidate(raw, types.ModeEvidence)
	require.Error(t, err)
	var me *MalformedError
	assert.ErrorAs(t, err, &me)
}

func TestSchemaIsGeneratedOnce(t *testing.T) {
	first := Schema()
	second := Schema()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
