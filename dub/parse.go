// Package dub parses the command language of the waltz shell. A line holds
// one or more commands separated by semicolons:
//
//	reroll '1:4,9; tempo 96; play
package dub

import (
	"fmt"
	"strconv"
)

type Node interface {
	isNode()
}

func (Identifier) isNode() {}
func (Int) isNode()        {}
func (Float) isNode()      {}
func (String) isNode()     {}
func (MatchExpr) isNode()  {}

type Command struct {
	Name Identifier
	Args []Node
}

type Identifier string
type Int int
type Float float64
type String string

// MatchExpr selects slots by 1-based number, e.g. '1:4,9 or '*.
type MatchExpr struct {
	matchers []matcher
}

// Parse parses a single command.
func Parse(input string) (Command, error) {
	cmds, err := ParseAll(input)
	if err != nil {
		return Command{}, err
	}
	switch len(cmds) {
	case 0:
		return Command{}, fmt.Errorf("empty command")
	case 1:
		return cmds[0], nil
	default:
		return Command{}, fmt.Errorf("expected one command, got %d", len(cmds))
	}
}

// ParseAll parses a line of commands separated by semicolons.
func ParseAll(input string) ([]Command, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	var cmds []Command
	for {
		switch p.peek().typ {
		case typeEOF:
			return cmds, nil
		case typeSemicolon:
			p.next()
			continue
		}
		cmd, err := p.command()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
}

// parser reads from a token slice that always ends with typeEOF. next never
// moves past it.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.typ != typeEOF {
		p.pos++
	}
	return t
}

func (p *parser) atEnd() bool {
	typ := p.peek().typ
	return typ == typeEOF || typ == typeSemicolon
}

func (p *parser) command() (Command, error) {
	name := p.next()
	if name.typ != typeIdentifier {
		return Command{}, unexpected(name)
	}
	cmd := Command{Name: Identifier(name.text)}
	for !p.atEnd() {
		arg, err := p.arg()
		if err != nil {
			return cmd, err
		}
		cmd.Args = append(cmd.Args, arg)
	}
	return cmd, nil
}

func (p *parser) arg() (Node, error) {
	t := p.next()
	switch t.typ {
	case typeIdentifier:
		return Identifier(t.text), nil
	case typeString:
		return String(t.text[1 : len(t.text)-1]), nil
	case typeFloat:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case typeInt:
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return nil, err
		}
		return Int(n), nil
	case typeQuote:
		expr, err := p.matchExpr()
		if err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, unexpected(t)
}

func (p *parser) matchExpr() (MatchExpr, error) {
	var expr MatchExpr
	for {
		m, err := p.matcher()
		if err != nil {
			return expr, err
		}
		expr.matchers = append(expr.matchers, m)
		if p.peek().typ != typeComma {
			return expr, nil
		}
		p.next()
	}
}

// matcher parses *, N or N:M.
func (p *parser) matcher() (matcher, error) {
	if p.peek().typ == typeAsterisk {
		p.next()
		return matchAll, nil
	}
	start, err := p.slot()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != typeColon {
		return listMatch{start}, nil
	}
	p.next()
	end, err := p.slot()
	if err != nil {
		return nil, err
	}
	return rangeMatch{start: start, end: end}, nil
}

func (p *parser) slot() (int, error) {
	t := p.next()
	if t.typ != typeInt {
		return 0, unexpected(t)
	}
	return strconv.Atoi(t.text)
}

func unexpected(t token) error {
	if t.typ == typeEOF {
		return fmt.Errorf("unexpected end of input")
	}
	return fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
}
