package taxonomy

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lemmacat/pkg/lemmacat/internalerr"
	"github.com/cognicore/lemmacat/pkg/lemmacat/lemma"
	"github.com/cognicore/lemmacat/pkg/lemmacat/normalize"
)

type lowerNormalizer struct{}

func (lowerNormalizer) NormalizeToString(text string) (string, error) {
	return strings.Join(strings.Fields(strings.ToLower(text)), " "), nil
}

type failingNormalizer struct{ err error }

func (f failingNormalizer) NormalizeToString(string) (string, error) { return "", f.err }

func TestBuildPreservesOrder(t *testing.T) {
	idx, err := Build(lowerNormalizer{}, []RawCategory{
		{Name: "zeta", Keywords: []string{"Z1", "z2"}},
		{Name: "alpha", Keywords: []string{"Credit  Card"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha"}, idx.Names())
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 3, idx.KeywordCount())

	zeta := idx.Category(0)
	require.Equal(t, 2, zeta.Len())
	assert.Equal(t, Keyword{Raw: "Z1", Normalized: "z1"}, zeta.Keyword(0))

	alpha, ok := idx.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "credit card", alpha.Keyword(0).Normalized)

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)
}

func TestBuildNormalizesPhraseAsWhole(t *testing.T) {
	s, err := lemma.NewSnowball("english")
	require.NoError(t, err)
	n := normalize.New(s)

	idx, err := Build(n, []RawCategory{{Name: "upi", Keywords: []string{"Transaction Failed"}}})
	require.NoError(t, err)

	want, err := n.NormalizeToString("transaction failed")
	require.NoError(t, err)
	kw := idx.Category(0).Keyword(0)
	assert.Equal(t, want, kw.Normalized)
	assert.Equal(t, "Transaction Failed", kw.Raw)
	assert.Len(t, strings.Fields(kw.Normalized), 2)
}

func TestBuildRejectsInvalidTaxonomies(t *testing.T) {
	tests := []struct {
		name string
		raw  []RawCategory
	}{
		{"empty taxonomy", nil},
		{"empty keyword list", []RawCategory{{Name: "a", Keywords: []string{}}}},
		{"duplicate name", []RawCategory{
			{Name: "a", Keywords: []string{"x"}},
			{Name: "a", Keywords: []string{"y"}},
		}},
		{"blank name", []RawCategory{{Name: "  ", Keywords: []string{"x"}}}},
		{"leading space in name", []RawCategory{{Name: " a", Keywords: []string{"x"}}}},
		{"trailing newline in name", []RawCategory{{Name: "a\n", Keywords: []string{"x"}}}},
		{"reserved name", []RawCategory{{Name: Reserved, Keywords: []string{"x"}}}},
		{"keyword normalizes to nothing", []RawCategory{{Name: "a", Keywords: []string{"   "}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Build(lowerNormalizer{}, tt.raw)
			require.Error(t, err)
			assert.Nil(t, idx)
			assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

			var cerr *ConfigError
			assert.True(t, errors.As(err, &cerr))
		})
	}
}

func TestBuildReportsNameVerbatim(t *testing.T) {
	_, err := Build(lowerNormalizer{}, []RawCategory{{Name: " A", Keywords: []string{"x"}}})
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, " A", cerr.Category)
}

func TestBuildKeywordNormalizationFailure(t *testing.T) {
	boom := errors.New("bad input")
	_, err := Build(failingNormalizer{err: boom}, []RawCategory{{Name: "a", Keywords: []string{"x"}}})

	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `category "a"`)
	assert.Contains(t, err.Error(), `keyword "x"`)
}

func TestKeywordsReturnsCopy(t *testing.T) {
	idx, err := Build(lowerNormalizer{}, []RawCategory{{Name: "a", Keywords: []string{"x"}}})
	require.NoError(t, err)

	kws := idx.Category(0).Keywords()
	kws[0].Normalized = "mutated"
	assert.Equal(t, "x", idx.Category(0).Keyword(0).Normalized)
}

func TestDigestDependsOnOrder(t *testing.T) {
	ab, err := Build(lowerNormalizer{}, []RawCategory{
		{Name: "a", Keywords: []string{"x"}},
		{Name: "b", Keywords: []string{"y"}},
	})
	require.NoError(t, err)
	ba, err := Build(lowerNormalizer{}, []RawCategory{
		{Name: "b", Keywords: []string{"y"}},
		{Name: "a", Keywords: []string{"x"}},
	})
	require.NoError(t, err)
	again, err := Build(lowerNormalizer{}, []RawCategory{
		{Name: "a", Keywords: []string{"X"}},
		{Name: "b", Keywords: []string{"Y"}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, ab.Digest(), ba.Digest())
	assert.Equal(t, ab.Digest(), again.Digest())
}
