package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{
		"":                     {Kind: SchemeNone},
		"None":                 {Kind: SchemeNone},
		"Repetition(3,1)":      {Kind: SchemeRepetition},
		"Hamming(7,4)":         {Kind: SchemeHamming74},
		"Polar":                {Kind: SchemePolar},
		"Polar(16,8)":          {Kind: SchemePolar, N: 16, K: 8},
		" Polar( 1024 , 512 )": {Kind: SchemePolar, N: 1024, K: 512},
	}
	for in, want := range cases {
		got, err := ParseScheme(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseSchemeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"Polar(12,4)", "Polar(16,17)", "Polar(16,0)", "Polar(16)", "Polar(a,b)", "Turbo", "Hamming(15,11)"} {
		_, err := ParseScheme(in)
		require.ErrorIs(t, err, ErrBadScheme, in)
	}
	_, err := ParseScheme("Polar(12,4)")
	require.ErrorIs(t, err, ErrNotPowerOfTwo)
}

func TestParseSchemeLenientFallsBackToNone(t *testing.T) {
	s, ok := ParseSchemeLenient("Polar(12,4)")
	assert.False(t, ok)
	assert.Equal(t, Scheme{Kind: SchemeNone}, s)

	s, ok = ParseSchemeLenient("Polar(32,16)")
	assert.True(t, ok)
	assert.Equal(t, "Polar(32,16)", s.String())
}

func TestSchemeStringAndRate(t *testing.T) {
	for _, in := range []string{"None", "Repetition(3,1)", "Hamming(7,4)", "Polar", "Polar(64,32)"} {
		s, err := ParseScheme(in)
		require.NoError(t, err)
		assert.Equal(t, in, s.String())
	}
	assert.InDelta(t, 1.0/3, Scheme{Kind: SchemeRepetition}.Rate(), 1e-12)
	assert.InDelta(t, 4.0/7, Scheme{Kind: SchemeHamming74}.Rate(), 1e-12)
	assert.InDelta(t, 0.25, Scheme{Kind: SchemePolar, N: 64, K: 16}.Rate(), 1e-12)
	assert.Equal(t, 1.0, Scheme{}.Rate())
}
