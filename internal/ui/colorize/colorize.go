package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"
)

// ListingLexer tokenises dump listings ("%08x  MNEMONIC operands") and
// report lines ("n x MNEMONIC operands").
var ListingLexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "bcfreq",
		Aliases:   []string{"bc", "bytecode"},
		Filenames: []string{"*.bclist"},
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `(?m)^[0-9a-f]{8}(?=\s)`, Type: chroma.NameLabel},
				{Pattern: `(?m)^\d+ x(?=\s)`, Type: chroma.LiteralNumberInteger},
				{Pattern: `\s+`, Type: chroma.TextWhitespace},
				{Pattern: `<end>`, Type: chroma.CommentPreproc},
				{Pattern: `0x[0-9a-fA-F]+`, Type: chroma.LiteralNumberHex},
				{Pattern: `-?\d+`, Type: chroma.LiteralNumberInteger},
				{Pattern: `[GLAC](?=\()`, Type: chroma.NameBuiltin},
				{Pattern: `[()]`, Type: chroma.Punctuation},
				{Pattern: `[=#][a-z]+`, Type: chroma.KeywordPseudo},
				{Pattern: `\b[LB][a-z]+\b`, Type: chroma.NameFunction},
				{Pattern: `\b[A-Z][A-Za-z]*\b`, Type: chroma.Keyword},
				{Pattern: `[+\-*/%<>=!&]+`, Type: chroma.Operator},
				{Pattern: `\S+`, Type: chroma.NameTag},
			},
		}
	},
))

// Enabled reports whether output should be colored. fatih/color already
// accounts for NO_COLOR and non-terminal output.
func Enabled() bool {
	return !color.NoColor && os.Getenv("BCFREQ_NO_COLOR") == ""
}

// getStyle returns the listing style with fallbacks
func getStyle() *chroma.Style {
	candidates := []string{"bcfreq-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Highlight colors text with the listing lexer. It returns text unchanged
// when colors are disabled.
func Highlight(text string) (string, error) {
	if !Enabled() {
		return text, nil
	}

	iterator, err := ListingLexer.Tokenise(nil, text)
	if err != nil {
		return text, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getStyle(), iterator); err != nil {
		return text, err
	}
	return buf.String(), nil
}

// Line colors a single listing or report line, falling back to the plain
// line on error.
func Line(line string) string {
	out, err := Highlight(line)
	if err != nil {
		return line
	}
	return strings.TrimSuffix(out, "\n")
}

// StripANSI removes ANSI codes and returns the plain string
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
