package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Defaults(t *testing.T) {
	tok := Default()

	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple sentence", "The fox jumped over the fence.", []string{"the", "fox", "jumped", "over", "the", "fence"}},
		{"hyphen splits", "break-even", []string{"break", "even"}},
		{"abbreviation", "U.S.A.", []string{"u", "s", "a"}},
		{"brackets", "(bracket]", []string{"bracket"}},
		{"quotes", "'x'", []string{"x"}},
		{"diacritics folded", "äö", []string{"ao"}},
		{"ipa letters", "bleɪd", []string{"bleɪd"}},
		{"underscore is punctuation", "snake_case", []string{"snake", "case"}},
		{"digits", "25. Juni 1982", []string{"25", "juni", "1982"}},
		{"only separators", "# * ^", nil},
		{"empty", "", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tok.Words(tc.input))
		})
	}
}

func TestTokenize_Offsets(t *testing.T) {
	tokens := Default().Tokenize("Indiana  Jones!")

	require.Len(t, tokens, 2)
	assert.Equal(t, Token{Text: "indiana", Start: 0, End: 7}, tokens[0])
	assert.Equal(t, Token{Text: "jones", Start: 9, End: 14}, tokens[1])
}

func TestTokenize_Precedence(t *testing.T) {
	// '-' becomes a token char, 'x' becomes a separator even though it is a letter.
	tok, err := New(Config{
		RemoveDiacritics: 1,
		TokenChars:       "-x",
		Separators:       "x",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"break-even", "yz"}, tok.Words("break-evenxyz"))
	assert.True(t, tok.IsTokenChar('-'))
	assert.False(t, tok.IsTokenChar('x'))
}

func TestTokenize_KeepDiacritics(t *testing.T) {
	tok, err := New(Config{RemoveDiacritics: 0})
	require.NoError(t, err)

	assert.Equal(t, []string{"müssen"}, tok.Words("Müssen"))
}

func TestTokenize_CustomCategories(t *testing.T) {
	tok, err := New(Config{RemoveDiacritics: 1, Categories: []string{"L*"}})
	require.NoError(t, err)

	// Digits are separators when N* is not configured.
	assert.Equal(t, []string{"abc", "def"}, tok.Words("abc123def"))
}

func TestNew_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{"diacritics out of range", Config{RemoveDiacritics: 3}},
		{"unknown category", Config{Categories: []string{"Qq"}}},
		{"bad wildcard", Config{Categories: []string{"Lu*"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestFTS5Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenChars = "-'"

	assert.Equal(t,
		"unicode61 remove_diacritics 1 categories 'L* N* Co' tokenchars '-'''",
		cfg.FTS5Options())
}
