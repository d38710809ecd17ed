package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_NamedKeysWinOverCharacters(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Enter", "Enter"},
		{"enter", "Enter"},
		{"ENTER", "Enter"},
		{"Return", "Enter"},
		{"Up", "Up"},
		{"down", "Down"},
		{"Esc", "Escape"},
		{"F5", "F5"},
		{"f12", "F12"},
		{"PgUp", "PPage"},
		{"page_down", "NPage"},
		{"Insert", "IC"},
		{"Del", "DC"},
		{"Home", "Home"},
		{"end", "End"},
		{"Backspace", "BSpace"},
		{"Space", "Space"},
		{"Tab", "Tab"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Translate(tt.input)
			require.Len(t, got, 1)
			assert.Equal(t, Named, got[0].Kind)
			assert.Equal(t, tt.want, got[0].Value)
		})
	}
}

func TestTranslate_Caret(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{"upper C", "^C", []Token{{Kind: Control, Value: "c"}}},
		{"lower z", "^z", []Token{{Kind: Control, Value: "z"}}},
		{"bare caret", "^", []Token{{Kind: Literal, Value: "^"}}},
		{"trailing caret", "a^", []Token{{Kind: Literal, Value: "a"}, {Kind: Literal, Value: "^"}}},
		{"caret then text", "^Dx", []Token{{Kind: Control, Value: "d"}, {Kind: Literal, Value: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Translate(tt.input))
		})
	}
}

func TestTranslate_ControlBytes(t *testing.T) {
	tests := []struct {
		input rune
		want  string
	}{
		{0x01, "C-a"},
		{0x03, "C-c"},
		{0x04, "C-d"},
		{0x05, "C-e"},
		{0x08, "BSpace"},
		{0x0b, "C-k"},
		{0x0c, "C-l"},
		{0x12, "C-r"},
		{0x15, "C-u"},
		{0x1a, "C-z"},
		{0x1b, "Escape"},
		{0x7f, "DC"},
		{'\t', "Tab"},
		{'\n', "Enter"},
		{'\r', "Enter"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			// Prefix with a literal so the whole-string named lookup never applies.
			got := Translate("x" + string(tt.input))
			require.Len(t, got, 2)
			assert.Equal(t, tt.want, got[1].Key())
			assert.False(t, got[1].Literal())
		})
	}
}

func TestTranslate_TextWithSpacesAndQuotes(t *testing.T) {
	got := Translate("echo 'hi'")

	want := []Token{
		{Kind: Literal, Value: "e"},
		{Kind: Literal, Value: "c"},
		{Kind: Literal, Value: "h"},
		{Kind: Literal, Value: "o"},
		{Kind: Named, Value: "Space"},
		{Kind: Quote, Value: QuotePayload},
		{Kind: Literal, Value: "h"},
		{Kind: Literal, Value: "i"},
		{Kind: Quote, Value: QuotePayload},
	}
	assert.Equal(t, want, got)
}

func TestTranslate_UnicodeStaysWhole(t *testing.T) {
	got := Translate("hé✓")
	require.Len(t, got, 3)
	assert.Equal(t, "é", got[1].Value)
	assert.Equal(t, "✓", got[2].Value)
}

func TestTranslate_Deterministic(t *testing.T) {
	inputs := []string{"", "^", "ls -la\n", "\x00\xff", "Up", "up the hill"}
	for _, in := range inputs {
		first := Translate(in)
		second := Translate(in)
		assert.Equal(t, first, second, "input %q", in)
	}
	assert.Empty(t, Translate(""))
}

func TestToken_Arg(t *testing.T) {
	tests := []struct {
		tok  Token
		want string
	}{
		{Token{Kind: Literal, Value: "a"}, `'a'`},
		{Token{Kind: Quote, Value: QuotePayload}, `''\'''`},
		{Token{Kind: Control, Value: "c"}, `'C-c'`},
		{Token{Kind: Control, Value: "'"}, `'C-'\'''`},
		{Token{Kind: Named, Value: "Enter"}, `'Enter'`},
	}
	for _, tt := range tests {
		t.Run(tt.tok.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tok.Arg())
		})
	}
}

func TestTranslate_CaretQuote(t *testing.T) {
	got := Translate("^'")
	assert.Equal(t, []Token{{Kind: Control, Value: "'"}}, got)
}

func TestTranslate_InvalidUTF8IsRaw(t *testing.T) {
	got := Translate("a\xffb")
	require.Len(t, got, 3)
	assert.Equal(t, Token{Kind: Literal, Value: "\xff"}, got[1])
	assert.True(t, got[1].Raw())
	assert.Equal(t, "ff", got[1].Hex())
	assert.False(t, got[0].Raw())
	assert.False(t, Token{Kind: Named, Value: "Enter"}.Raw())
}

func TestEndsWithNewline(t *testing.T) {
	assert.True(t, EndsWithNewline("ls\n"))
	assert.True(t, EndsWithNewline("ls\r"))
	assert.False(t, EndsWithNewline("ls"))
	assert.False(t, EndsWithNewline(""))
}
