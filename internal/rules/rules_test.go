package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCompiles(t *testing.T) {
	set, err := Compile(model.DefaultConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, set.Patterns)
	assert.NotEmpty(t, set.Fingerprint)
	assert.Equal(t, []string{"liability", "termination", "confidentiality", "governing_law"}, set.Required)

	cat, ok := set.Category("liability")
	require.True(t, ok)
	assert.NotEmpty(t, cat.RiskRules)

	_, ok = set.Category("nonexistent")
	assert.False(t, ok)
}

func TestDefaultSimilarityWeightsSumToOne(t *testing.T) {
	s := model.DefaultConfig().Similarity
	assert.InDelta(t, 1.0, s.EntityWeight+s.ClauseWeight+s.TextWeight, 1e-9)
}

func TestDefaultTaxonomyMapsToLegal(t *testing.T) {
	cfg := model.DefaultConfig()
	for _, cat := range cfg.Taxonomy.Categories {
		assert.Contains(t, cfg.Risk.CategoryMap[cat.Name], model.RiskLegal, "category %s", cat.Name)
	}
}

func TestCompileRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Config)
		field  string
	}{
		{
			name:   "bad entity regex",
			mutate: func(c *model.Config) { c.Entities.Patterns[0].Pattern = `(?P<amount>\d+` },
			field:  "entities.patterns[0].pattern",
		},
		{
			name:   "unknown entity type",
			mutate: func(c *model.Config) { c.Entities.Patterns[0].Type = "PHONE" },
			field:  "entities.patterns[0].type",
		},
		{
			name:   "confidence out of range",
			mutate: func(c *model.Config) { c.Entities.Patterns[1].Confidence = 1.2 },
			field:  "entities.patterns[1].confidence",
		},
		{
			name:   "empty-matching pattern",
			mutate: func(c *model.Config) { c.Entities.Patterns[0].Pattern = `x*` },
			field:  "entities.patterns[0].pattern",
		},
		{
			name:   "weights do not sum to one",
			mutate: func(c *model.Config) { c.Similarity.TextWeight = 0.5 },
			field:  "similarity",
		},
		{
			name: "duplicate category",
			mutate: func(c *model.Config) {
				c.Taxonomy.Categories = append(c.Taxonomy.Categories, c.Taxonomy.Categories[0])
			},
			field: "taxonomy.categories[12].name",
		},
		{
			name: "unknown rule kind",
			mutate: func(c *model.Config) {
				c.Taxonomy.Categories[0].RiskRules[0].Kind = "sometimes"
			},
			field: "taxonomy.categories[0].risk_rules[0].kind",
		},
		{
			name: "bad risk level",
			mutate: func(c *model.Config) {
				c.Taxonomy.Categories[0].RiskRules[0].Level = "SEVERE"
			},
			field: "taxonomy.categories[0].risk_rules[0].level",
		},
		{
			name:   "unknown risk category in mapping",
			mutate: func(c *model.Config) { c.Risk.CategoryMap["payment"] = []model.RiskCategory{"reputational"} },
			field:  "risk.category_map.payment",
		},
		{
			name:   "multiplier below one",
			mutate: func(c *model.Config) { c.Impact.MaxMultiplier = 0.5 },
			field:  "impact.max_multiplier",
		},
		{
			name:   "zero size limit",
			mutate: func(c *model.Config) { c.Limits.MaxDocumentBytes = 0 },
			field:  "limits.max_document_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			tt.mutate(cfg)

			set, err := Compile(cfg)
			require.Error(t, err)
			assert.Nil(t, set)
			assert.True(t, errors.Is(err, model.ErrInvalidConfig))

			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCompileNil(t *testing.T) {
	_, err := Compile(nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestKeywordPattern(t *testing.T) {
	set := Default()
	cat, ok := set.Category("governing_law")
	require.True(t, ok)

	hits := 0
	for _, re := range cat.Keywords {
		if re.MatchString("This Agreement is GOVERNED\n BY the Laws  of Delaware.") {
			hits++
		}
	}
	assert.Equal(t, 2, hits)
}

func TestFingerprintIgnoresOperationalSettings(t *testing.T) {
	a := model.DefaultConfig()
	b := model.DefaultConfig()
	b.Cache.Enabled = true
	b.Concurrency.Workers = 16

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	b.Similarity.ShiftFloor = 0.5
	fc, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, model.DefaultConfig().Similarity, cfg.Similarity)
	})

	t.Run("overlay", func(t *testing.T) {
		path := filepath.Join(dir, "overlay.yaml")
		data := []byte("similarity:\n  entity_weight: 0.2\n  clause_weight: 0.2\n  text_weight: 0.6\ntaxonomy:\n  min_score: 0.45\n")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		set, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 0.6, set.Config.Similarity.TextWeight)
		assert.Equal(t, 0.45, set.Config.Taxonomy.MinScore)
		// Untouched fields keep their defaults
		assert.Equal(t, 0.8, set.Config.Similarity.ClauseChangeFloor)
		assert.NotEmpty(t, set.Categories)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yaml")
		require.NoError(t, os.WriteFile(path, []byte("similarity:\n  colour: blue\n"), 0o644))

		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "absent.yaml"))
		assert.ErrorIs(t, err, model.ErrInvalidConfig)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultConfig().Limits, cfg.Limits)
	})
}
