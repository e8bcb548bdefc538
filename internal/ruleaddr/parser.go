// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ruleaddr

import (
	"sort"

	ferrors "lorasec.io/detect/internal/errors"
)

// Resolver looks up the raw address-expression text a rule variable
// ($HOME_NET, $EXTERNAL_NET, ...) stands for.
type Resolver func(name string) (string, error)

// Parse parses expr per the grammar in spec.md §4.7 and returns its items
// sorted ascending by PrefixLen, so C2's build algorithm sees shorter
// (less specific) prefixes before longer ones. Negation is carried as a
// per-item flag (Item.Negated), not resolved into a complement range: C2's
// build step reads "is this item negated" directly when it sets or clears
// a signature's bit at that item's own netmask, inheriting from whatever
// broader prefix already covers it. A bracketed list's negation therefore
// distributes onto each of its members by XOR, the same as spec.md's
// "nested ! compose by XOR" rule applied one level deeper.
func Parse(expr string, resolve Resolver) ([]Item, error) {
	items, err := parseString(expr, resolve, false)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PrefixLen < items[j].PrefixLen
	})
	return items, nil
}

func parseString(expr string, resolve Resolver, negated bool) ([]Item, error) {
	p := &parser{lex: newLexer(expr), resolve: resolve}
	if err := p.advance(); err != nil {
		return nil, err
	}
	items, err := p.parseExpr(negated)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, ferrors.New(ferrors.KindParse, "ruleaddr: unexpected trailing input")
	}
	return items, nil
}

type parser struct {
	lex     *lexer
	tok     token
	resolve Resolver
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// parseExpr implements the grammar's `expr` production. negated is the
// XOR-composed negation flag inherited from enclosing '!' tokens.
func (p *parser) parseExpr(negated bool) ([]Item, error) {
	switch p.tok.kind {
	case tokBang:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseExpr(!negated)

	case tokLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		items, err := p.parseList(negated)
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRBracket {
			return nil, ferrors.New(ferrors.KindParse, "ruleaddr: expected ']'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return items, nil

	case tokDollar:
		name := p.tok.text
		if p.resolve == nil {
			return nil, ferrors.Errorf(ferrors.KindParse, "ruleaddr: variable %q used with no resolver configured", name)
		}
		resolved, err := p.resolve(name)
		if err != nil {
			return nil, ferrors.Wrapf(err, ferrors.KindParse, "ruleaddr: resolving variable %q", name)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		// ![$HOME_NET] expands to [!$HOME_NET]'s semantics: the resolved
		// text is re-parsed as a fresh expression, carrying the current
		// negation flag down into it exactly as a literal bracket-wrap
		// would, per spec.md §4.7.
		return parseString(resolved, p.resolve, negated)

	case tokWord:
		word := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		items, err := parseAtom(word)
		if err != nil {
			return nil, err
		}
		if negated {
			for i := range items {
				items[i].Negated = !items[i].Negated
			}
		}
		return items, nil

	default:
		return nil, ferrors.New(ferrors.KindParse, "ruleaddr: expected an address expression")
	}
}

// parseList implements `list := expr (',' expr)*`. The list's own negation
// flag distributes onto every member.
func (p *parser) parseList(negated bool) ([]Item, error) {
	var all []Item
	for {
		items, err := p.parseExpr(negated)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if p.tok.kind != tokComma {
			return all, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}
