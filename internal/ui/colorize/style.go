package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// ListingDark is the style for bytecode listings and reports.
var ListingDark = styles.Register(chroma.MustNewStyle("bcfreq-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.Background:     "bg:#1e1e1e",
	chroma.CommentPreproc: "#6A9955", // <end>

	chroma.Keyword:       "#FFFFFF", // mnemonics
	chroma.KeywordPseudo: "#C586C0", // pattern kinds
	chroma.NameBuiltin:   "#7C9C9D", // G L A C
	chroma.NameFunction:  "#DCDCAA", // runtime builtins
	chroma.NameTag:       "#EACD53",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	chroma.NameLabel:   "#4F4F4F", // offsets
	chroma.Operator:    "#FFD700",
	chroma.Punctuation: "#FFFFFF",
}))
