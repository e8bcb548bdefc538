// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ruleaddr implements the recursive-descent parser over rule
// address expressions described in spec.md §4.7: brackets, negation,
// comma-separated lists, CIDR/range/any atoms, and `$NAME` variable
// resolution. Its output feeds internal/address's Cut/Join algebra and,
// ultimately, internal/iponly's radix trees.
package ruleaddr

import (
	"strings"

	ferrors "lorasec.io/detect/internal/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBracket
	tokRBracket
	tokComma
	tokBang
	tokDollar
	tokWord
)

type token struct {
	kind tokenKind
	text string // for tokWord: the atom text; for tokDollar: the variable name
}

// lexer splits an address expression into the handful of structural tokens
// the grammar needs. Anything that isn't '[', ']', ',', '!', '$', or
// whitespace is swallowed whole into a tokWord: IPs, CIDRs, and ranges all
// contain characters ('.', ':', '/', '-') that would otherwise need their
// own lexical rules, and the grammar never needs to look inside an atom
// until the parser hands it to parseAtom.
type lexer struct {
	src []rune
	pos int
}

func newLexer(s string) *lexer {
	return &lexer{src: []rune(s)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func isSpecial(r rune) bool {
	switch r {
	case '[', ']', ',', '!', '$':
		return true
	default:
		return false
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			l.pos++
			continue
		}
		break
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tokEOF}, nil
	}

	switch r {
	case '[':
		l.pos++
		return token{kind: tokLBracket}, nil
	case ']':
		l.pos++
		return token{kind: tokRBracket}, nil
	case ',':
		l.pos++
		return token{kind: tokComma}, nil
	case '!':
		l.pos++
		return token{kind: tokBang}, nil
	case '$':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && !isSpecial(l.src[l.pos]) && l.src[l.pos] != ' ' {
			l.pos++
		}
		if l.pos == start {
			return token{}, ferrors.New(ferrors.KindParse, "ruleaddr: empty variable name after '$'")
		}
		return token{kind: tokDollar, text: string(l.src[start:l.pos])}, nil
	default:
		start := l.pos
		for l.pos < len(l.src) && !isSpecial(l.src[l.pos]) && l.src[l.pos] != ' ' {
			l.pos++
		}
		word := strings.TrimSpace(string(l.src[start:l.pos]))
		return token{kind: tokWord, text: word}, nil
	}
}
