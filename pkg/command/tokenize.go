// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Amethyst Contributors

package command

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var quotedLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Quoted", Pattern: `"[^"]*"`},
	{Name: "Word", Pattern: `[^\s"]+`},
	{Name: "Quote", Pattern: `"`},
	{Name: "whitespace", Pattern: `\s+`},
})

var (
	tokQuoted = quotedLexer.Symbols()["Quoted"]
	tokWord   = quotedLexer.Symbols()["Word"]
)

// Tokenize splits content on whitespace. With quoted set, a "double quoted"
// span becomes a single token without its quotes; an unbalanced quote is
// dropped.
func Tokenize(content string, quoted bool) []string {
	if !quoted || !strings.Contains(content, `"`) {
		return strings.Fields(content)
	}

	lex, err := quotedLexer.LexString("", content)
	if err != nil {
		return strings.Fields(content)
	}

	var tokens []string
	for {
		tok, err := lex.Next()
		if err != nil {
			// The rules cover every input byte, so this only guards
			// against lexer internals.
			return strings.Fields(content)
		}
		if tok.EOF() {
			return tokens
		}
		switch tok.Type {
		case tokQuoted:
			if inner := tok.Value[1 : len(tok.Value)-1]; inner != "" {
				tokens = append(tokens, inner)
			}
		case tokWord:
			tokens = append(tokens, tok.Value)
		}
	}
}
