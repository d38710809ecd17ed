// Package keys translates human-oriented input into tmux send-keys tokens.
//
// A caller can pass either text to type ("ls -la", "^C", "echo 'hi'\n") or the
// name of a single key ("Enter", "pgup", "F5"). Translate decides which one it
// is and returns the discrete key events tmux should receive, in order.
package keys

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind classifies a Token.
type Kind int

const (
	// Literal is a single character typed verbatim (send-keys -l).
	Literal Kind = iota
	// Named is a tmux key name such as "Enter", "Up" or "F5".
	Named
	// Control is a Ctrl-modified character; Value holds the lowercase letter.
	Control
	// Quote is a single quote, escaped for use inside a single-quoted argument.
	Quote
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Named:
		return "named"
	case Control:
		return "control"
	case Quote:
		return "quote"
	default:
		return "unknown"
	}
}

// QuotePayload closes a single-quoted shell word, emits an escaped quote and
// reopens the word.
const QuotePayload = `'\''`

// Token is one key event understood by tmux send-keys.
type Token struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Key returns the tmux key name for the token (e.g. "C-c", "Enter", "a").
func (t Token) Key() string {
	switch t.Kind {
	case Control:
		return "C-" + t.Value
	case Quote:
		return "'"
	default:
		return t.Value
	}
}

// Literal reports whether the token must be sent with send-keys -l.
func (t Token) Literal() bool {
	return t.Kind == Literal || t.Kind == Quote
}

// Arg renders the token as a single-quoted send-keys argument. Every kind
// goes through the same escaping, so a Control token for "'" stays one word.
func (t Token) Arg() string {
	v := t.Key()
	if t.Kind == Literal {
		v = t.Value
	}
	return "'" + strings.ReplaceAll(v, "'", QuotePayload) + "'"
}

// Raw reports whether the token holds a byte that is not valid UTF-8. Such a
// byte does not survive a quoted command line and is sent as hex instead.
func (t Token) Raw() bool {
	return t.Kind == Literal && !utf8.ValidString(t.Value)
}

// Hex renders the token's bytes as send-keys -H arguments.
func (t Token) Hex() string {
	parts := make([]string, len(t.Value))
	for i := 0; i < len(t.Value); i++ {
		parts[i] = fmt.Sprintf("%02x", t.Value[i])
	}
	return strings.Join(parts, " ")
}

func (t Token) String() string {
	return t.Kind.String() + ":" + t.Key()
}

// namedKeys maps lowercase synonyms to tmux key names.
var namedKeys = map[string]string{
	"enter":      "Enter",
	"return":     "Enter",
	"cr":         "Enter",
	"tab":        "Tab",
	"escape":     "Escape",
	"esc":        "Escape",
	"up":         "Up",
	"arrowup":    "Up",
	"down":       "Down",
	"arrowdown":  "Down",
	"left":       "Left",
	"arrowleft":  "Left",
	"right":      "Right",
	"arrowright": "Right",
	"f1":         "F1",
	"f2":         "F2",
	"f3":         "F3",
	"f4":         "F4",
	"f5":         "F5",
	"f6":         "F6",
	"f7":         "F7",
	"f8":         "F8",
	"f9":         "F9",
	"f10":        "F10",
	"f11":        "F11",
	"f12":        "F12",
	"pageup":     "PPage",
	"page_up":    "PPage",
	"pgup":       "PPage",
	"ppage":      "PPage",
	"pagedown":   "NPage",
	"page_down":  "NPage",
	"pgdn":       "NPage",
	"npage":      "NPage",
	"insert":     "IC",
	"ins":        "IC",
	"ic":         "IC",
	"delete":     "DC",
	"del":        "DC",
	"dc":         "DC",
	"home":       "Home",
	"end":        "End",
	"backspace":  "BSpace",
	"bspace":     "BSpace",
	"bs":         "BSpace",
	"space":      "Space",
}

// controlBytes maps raw control characters to fixed tokens.
var controlBytes = map[rune]Token{
	0x01: {Kind: Control, Value: "a"},
	0x03: {Kind: Control, Value: "c"},
	0x04: {Kind: Control, Value: "d"},
	0x05: {Kind: Control, Value: "e"},
	0x08: {Kind: Named, Value: "BSpace"},
	0x0b: {Kind: Control, Value: "k"},
	0x0c: {Kind: Control, Value: "l"},
	0x12: {Kind: Control, Value: "r"},
	0x15: {Kind: Control, Value: "u"},
	0x1a: {Kind: Control, Value: "z"},
	0x1b: {Kind: Named, Value: "Escape"},
	0x7f: {Kind: Named, Value: "DC"},
	'\t': {Kind: Named, Value: "Tab"},
	'\n': {Kind: Named, Value: "Enter"},
	'\r': {Kind: Named, Value: "Enter"},
	' ':  {Kind: Named, Value: "Space"},
}

// LookupNamed returns the tmux key name for a whole-string key name, if any.
func LookupNamed(input string) (string, bool) {
	name, ok := namedKeys[strings.ToLower(input)]
	return name, ok
}

// Translate converts input into an ordered token sequence. It never fails:
// bytes it does not recognise become literal tokens.
func Translate(input string) []Token {
	if name, ok := LookupNamed(input); ok {
		return []Token{{Kind: Named, Value: name}}
	}

	tokens := make([]Token, 0, len(input))
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])

		if r == '^' && i+size < len(input) {
			next, nsize := utf8.DecodeRuneInString(input[i+size:])
			letter := strings.ToLower(string(next))
			tokens = append(tokens, Token{Kind: Control, Value: letter})
			i += size + nsize
			continue
		}

		switch {
		case r == '\'':
			tokens = append(tokens, Token{Kind: Quote, Value: QuotePayload})
		case r == utf8.RuneError && size == 1:
			// Invalid UTF-8: keep the single byte; SendKey delivers it as hex.
			tokens = append(tokens, Token{Kind: Literal, Value: input[i : i+1]})
		default:
			if tok, ok := controlBytes[r]; ok {
				tokens = append(tokens, tok)
			} else {
				tokens = append(tokens, Token{Kind: Literal, Value: string(r)})
			}
		}
		i += size
	}
	return tokens
}

// EndsWithNewline reports whether s already ends in a line terminator.
func EndsWithNewline(s string) bool {
	return strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r")
}
