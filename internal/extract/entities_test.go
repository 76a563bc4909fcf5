package extract

import (
	"strings"
	"testing"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContract = `MASTER SERVICES AGREEMENT

This Agreement is entered into on March 1, 2024 between Acme Holdings Inc. and Globex Corporation.

1. Payment
The Customer shall pay the Supplier a fee of $200,000 within 30 days of invoice. Late fees of EUR 5 million apply.

2. Term
This Agreement starts on 2024-04-01 and ends on 03/04/2026.

3. Confidentiality
Each party must not disclose Confidential Information. The Supplier will notify the Customer of any breach.
`

func newExtractor(t *testing.T) *EntityExtractor {
	t.Helper()
	set, err := rules.Compile(model.DefaultConfig())
	require.NoError(t, err)
	return NewEntityExtractor(set)
}

func findEntity(set model.EntitySet, typ model.EntityType, raw string) (model.Entity, bool) {
	for _, e := range set.Entities {
		if e.Type == typ && e.RawText == raw {
			return e, true
		}
	}
	return model.Entity{}, false
}

func TestEntityExtractor_Money(t *testing.T) {
	ex := newExtractor(t)
	set, err := ex.Extract(sampleContract)
	require.NoError(t, err)

	fee, ok := findEntity(set, model.EntityMoney, "$200,000")
	require.True(t, ok, "expected $200,000 to be extracted")
	assert.Equal(t, "USD 200000.00", fee.Normalized)
	assert.GreaterOrEqual(t, fee.Confidence, 0.9)
	assert.Equal(t, "money_symbol", fee.Pattern)

	late, ok := findEntity(set, model.EntityMoney, "EUR 5 million")
	require.True(t, ok, "expected EUR 5 million to be extracted")
	assert.Equal(t, "EUR 5000000.00", late.Normalized)
}

func TestEntityExtractor_Dates(t *testing.T) {
	ex := newExtractor(t)
	set, err := ex.Extract(sampleContract)
	require.NoError(t, err)

	tests := []struct {
		raw        string
		normalized string
		conf       float64
	}{
		{"March 1, 2024", "2024-03-01", 0.9},
		{"2024-04-01", "2024-04-01", 0.95},
		// month/day order is ambiguous
		{"03/04/2026", "2026-03-04", 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			e, ok := findEntity(set, model.EntityDate, tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.normalized, e.Normalized)
			assert.InDelta(t, tt.conf, e.Confidence, 1e-9)
		})
	}
}

func TestEntityExtractor_UnparsableDateDegrades(t *testing.T) {
	ex := newExtractor(t)
	set, err := ex.Extract("Payment is due on 2024-02-30 at the latest.")
	require.NoError(t, err)

	e, ok := findEntity(set, model.EntityDate, "2024-02-30")
	require.True(t, ok, "malformed date should be kept with lower confidence")
	assert.Equal(t, "2024-02-30", e.Normalized)
	assert.InDelta(t, 0.475, e.Confidence, 1e-9)
}

func TestEntityExtractor_Organizations(t *testing.T) {
	ex := newExtractor(t)
	set, err := ex.Extract(sampleContract)
	require.NoError(t, err)

	acme, ok := findEntity(set, model.EntityOrganization, "Acme Holdings Inc")
	require.True(t, ok)
	assert.Equal(t, "Acme Holdings Inc", acme.Normalized)
	assert.Equal(t, 0.85, acme.Confidence)

	globex, ok := findEntity(set, model.EntityOrganization, "Globex Corporation")
	require.True(t, ok)
	assert.Equal(t, "Globex Corp", globex.Normalized)

	// Contract vocabulary is not an organization
	for _, e := range set.OfType(model.EntityOrganization) {
		assert.NotContains(t, e.RawText, "This Agreement")
		assert.NotContains(t, e.RawText, "Confidential Information")
	}
}

func TestEntityExtractor_Obligations(t *testing.T) {
	ex := newExtractor(t)
	set, err := ex.Extract(sampleContract)
	require.NoError(t, err)

	var normalized []string
	for _, e := range set.OfType(model.EntityObligation) {
		normalized = append(normalized, e.Normalized)
	}

	assert.Contains(t, normalized, "shall pay the supplier a fee of $200,000 within 30 days of invoice")
	assert.Contains(t, normalized, "must not disclose confidential information")
	assert.Contains(t, normalized, "will notify the customer of any breach")

	for _, e := range set.OfType(model.EntityObligation) {
		if strings.HasPrefix(e.Normalized, "must not") {
			assert.InDelta(t, 0.85, e.Confidence, 1e-9)
		}
		if strings.HasPrefix(e.Normalized, "will") {
			assert.InDelta(t, 0.5, e.Confidence, 1e-9)
		}
	}
}

func TestEntityExtractor_SameTypeOverlapKeepsOne(t *testing.T) {
	ex := newExtractor(t)
	// "USD 100" (prefix rule) and "100 USD" (suffix rule) overlap on "100"
	set, err := ex.Extract("The price is USD 100 USD only.")
	require.NoError(t, err)

	money := set.OfType(model.EntityMoney)
	require.Len(t, money, 1)
	assert.Equal(t, "USD 100", money[0].RawText)
	assert.Equal(t, "money_code_prefix", money[0].Pattern)
	assert.Equal(t, 1, set.Counts[model.EntityMoney])
}

func TestEntityExtractor_Invariants(t *testing.T) {
	ex := newExtractor(t)
	inputs := []string{
		sampleContract,
		"USD 1,000 USD 2,000 $3 million £4.50 ¥100 on 12/12/12 and 31/31/2020",
		"Alpha Beta Gamma Delta Epsilon LLC shall shall not must agree to agrees to pay",
	}

	for _, in := range inputs {
		set, err := ex.Extract(in)
		require.NoError(t, err)

		total := 0
		for _, n := range set.Counts {
			total += n
		}
		assert.Equal(t, len(set.Entities), total)

		for i, a := range set.Entities {
			assert.GreaterOrEqual(t, a.Confidence, 0.0)
			assert.LessOrEqual(t, a.Confidence, 1.0)
			assert.Equal(t, in[a.Span.Start:a.Span.End], a.RawText)
			if i > 0 {
				assert.LessOrEqual(t, set.Entities[i-1].Span.Start, a.Span.Start, "entities must be sorted by offset")
			}
			for _, b := range set.Entities[i+1:] {
				if a.Type == b.Type {
					assert.False(t, a.Span.Overlaps(b.Span), "%s %q overlaps %q", a.Type, a.RawText, b.RawText)
				}
			}
		}
	}
}

func TestEntityExtractor_RejectsInvalidInput(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Limits.MaxDocumentBytes = 16
	set, err := rules.Compile(cfg)
	require.NoError(t, err)
	ex := NewEntityExtractor(set)

	_, err = ex.Extract("   \n\t")
	assert.ErrorIs(t, err, model.ErrEmptyInput)

	_, err = ex.Extract(strings.Repeat("a", 17))
	assert.ErrorIs(t, err, model.ErrInputTooLarge)

	_, err = ex.Extract(strings.Repeat("a", 16))
	assert.NoError(t, err)
}

func TestResolveOverlaps_TieBreaks(t *testing.T) {
	cands := []model.Entity{
		{Type: model.EntityDate, Span: model.Span{Start: 0, End: 5}, Confidence: 0.7, RawText: "short"},
		{Type: model.EntityDate, Span: model.Span{Start: 2, End: 10}, Confidence: 0.7, RawText: "longer"},
		{Type: model.EntityDate, Span: model.Span{Start: 20, End: 25}, Confidence: 0.5, RawText: "late"},
		{Type: model.EntityDate, Span: model.Span{Start: 22, End: 27}, Confidence: 0.5, RawText: "later"},
		{Type: model.EntityMoney, Span: model.Span{Start: 0, End: 10}, Confidence: 0.1, RawText: "other type"},
	}

	got := resolveOverlaps(cands)
	var raws []string
	for _, e := range got {
		raws = append(raws, e.RawText)
	}
	assert.Equal(t, []string{"other type", "longer", "late"}, raws)
}

func TestResolveOverlaps_ChainKeepsOneSurvivor(t *testing.T) {
	// a overlaps b, b overlaps c, a and c are disjoint
	cands := []model.Entity{
		{Type: model.EntityObligation, Span: model.Span{Start: 0, End: 10}, Confidence: 0.8, RawText: "a"},
		{Type: model.EntityObligation, Span: model.Span{Start: 8, End: 20}, Confidence: 0.5, RawText: "b"},
		{Type: model.EntityObligation, Span: model.Span{Start: 18, End: 30}, Confidence: 0.7, RawText: "c"},
		{Type: model.EntityObligation, Span: model.Span{Start: 30, End: 40}, Confidence: 0.4, RawText: "touching"},
	}

	got := resolveOverlaps(cands)
	var raws []string
	for _, e := range got {
		raws = append(raws, e.RawText)
	}
	assert.Equal(t, []string{"a", "touching"}, raws)
}
