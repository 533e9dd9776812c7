// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arith

import "fmt"

// parser is a precedence-climbing (Pratt) evaluator: it evaluates as it
// parses rather than building an intermediate tree, since the spec's
// testable properties only constrain results, not tree shape.
type parser struct {
	lex  *lexer
	tok  token
	vars Vars

	// lenient suppresses division-by-zero errors (returning 0 instead),
	// used while parsing the short-circuited branch of && / || whose
	// value bash never materializes.
	lenient bool
}

func (p *parser) next() { p.tok = p.lex.next() }

// precedence table, lowest to highest (comma is handled at the top of
// parseExpr separately since it's left-associative over full exprs).
var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

var rightAssoc = map[string]bool{"**": true}

// assignOps maps compound assignment operators to their base binary op
// ("" for plain "=").
var assignOps = map[string]string{
	"=": "", "+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>",
}

// parseExpr parses the comma operator and assignment/ternary below it.
func (p *parser) parseExpr(minPrec int) (int64, error) {
	v, err := p.parseAssignOrTernary()
	if err != nil {
		return 0, err
	}
	for p.tok.kind == tokComma {
		p.next()
		v, err = p.parseAssignOrTernary()
		if err != nil {
			return 0, err
		}
	}
	return v, nil
}

func (p *parser) parseAssignOrTernary() (int64, error) {
	// Try assignment: IDENT [ '[' expr ']' ] ASSIGNOP expr
	if p.tok.kind == tokIdent {
		name := p.tok.text
		save := *p.lex
		saveTok := p.tok
		p.next()

		var index *int64
		if p.tok.kind == tokLBracket {
			p.next()
			idx, err := p.parseExpr(0)
			if err != nil {
				return 0, err
			}
			if p.tok.kind != tokRBracket {
				return 0, &Error{Msg: "expected ']'"}
			}
			p.next()
			index = &idx
		}

		if p.tok.kind == tokOp {
			if base, ok := assignOps[p.tok.text]; ok {
				op := p.tok.text
				p.next()
				rhs, err := p.parseAssignOrTernary()
				if err != nil {
					return 0, err
				}
				var cur int64
				if index != nil {
					cur = p.vars.GetIndexed(name, *index)
				} else {
					cur = p.vars.Get(name)
				}
				result := rhs
				if base != "" {
					r, err := p.applyBinary(base, cur, rhs)
					if err != nil {
						return 0, err
					}
					result = r
				}
				_ = op
				if index != nil {
					p.vars.SetIndexed(name, *index, result)
				} else {
					p.vars.Set(name, result)
				}
				return result, nil
			}
		}

		// Not an assignment: rewind and fall through to ternary parsing.
		*p.lex = save
		p.tok = saveTok
	}

	cond, err := p.parseBinary(1)
	if err != nil {
		return 0, err
	}
	if p.tok.kind == tokQuestion {
		p.next()
		thenVal, err := p.parseAssignOrTernary()
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokColon {
			return 0, &Error{Msg: "expected ':' in ternary"}
		}
		p.next()
		elseVal, err := p.parseAssignOrTernary()
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return thenVal, nil
		}
		return elseVal, nil
	}
	return cond, nil
}

func (p *parser) parseBinary(minPrec int) (int64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		if p.tok.kind != tokOp {
			return left, nil
		}
		prec, ok := binPrec[p.tok.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		op := p.tok.text

		// Short-circuit evaluation for && and ||.
		if op == "&&" || op == "||" {
			p.next()
			nextMin := prec + 1
			right, err := p.parseBinaryLazy(nextMin, op, left)
			if err != nil {
				return 0, err
			}
			left = right
			continue
		}

		p.next()
		nextMin := prec + 1
		if rightAssoc[op] {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return 0, err
		}
		left, err = p.applyBinary(op, left, right)
		if err != nil {
			return 0, err
		}
	}
}

// parseBinaryLazy evaluates `left OP <rhs>` for short-circuit operators.
// The right side's tokens are always consumed (so the token stream
// stays in sync), but once left already determines the outcome
// (left!=0 for ||, left==0 for &&), the right side parses in lenient
// mode so a division-by-zero it would never materialize (`1 || 1/0`)
// does not abort evaluation.
func (p *parser) parseBinaryLazy(minPrec int, op string, left int64) (int64, error) {
	shortCircuited := (op == "&&" && left == 0) || (op == "||" && left != 0)
	if shortCircuited {
		saved := p.lenient
		p.lenient = true
		defer func() { p.lenient = saved }()
	}
	right, err := p.parseBinary(minPrec)
	if err != nil {
		return 0, err
	}
	switch op {
	case "&&":
		if left == 0 {
			return 0, nil
		}
		if right != 0 {
			return 1, nil
		}
		return 0, nil
	case "||":
		if left != 0 {
			return 1, nil
		}
		if right != 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 0, &Error{Msg: "unreachable"}
}

func (p *parser) parseUnary() (int64, error) {
	if p.tok.kind == tokOp {
		switch p.tok.text {
		case "-":
			p.next()
			v, err := p.parseUnary()
			return -v, err
		case "+":
			p.next()
			return p.parseUnary()
		case "!":
			p.next()
			v, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if v == 0 {
				return 1, nil
			}
			return 0, nil
		case "~":
			p.next()
			v, err := p.parseUnary()
			return ^v, err
		case "++":
			p.next()
			return p.parsePreIncDec(1)
		case "--":
			p.next()
			return p.parsePreIncDec(-1)
		}
	}
	return p.parsePostfix()
}

func (p *parser) parsePreIncDec(delta int64) (int64, error) {
	if p.tok.kind != tokIdent {
		return 0, &Error{Msg: "expected identifier after ++/--"}
	}
	name := p.tok.text
	p.next()
	v := p.vars.Get(name) + delta
	p.vars.Set(name, v)
	return v, nil
}

func (p *parser) parsePostfix() (int64, error) {
	v, name, indexed, idx, err := p.parsePrimaryNamed()
	if err != nil {
		return 0, err
	}
	if p.tok.kind == tokOp && (p.tok.text == "++" || p.tok.text == "--") {
		if name == "" {
			return 0, &Error{Msg: "postfix ++/-- requires an identifier"}
		}
		delta := int64(1)
		if p.tok.text == "--" {
			delta = -1
		}
		p.next()
		if indexed {
			p.vars.SetIndexed(name, idx, v+delta)
		} else {
			p.vars.Set(name, v+delta)
		}
		return v, nil
	}
	return v, nil
}

// parsePrimaryNamed parses a primary expression, also reporting the
// identifier name and optional array index when the primary was a bare
// variable reference (needed by postfix ++/--).
func (p *parser) parsePrimaryNamed() (value int64, name string, indexed bool, idx int64, err error) {
	switch p.tok.kind {
	case tokNumber:
		v, perr := parseNumber(p.tok.text)
		p.next()
		return v, "", false, 0, perr
	case tokLParen:
		p.next()
		v, perr := p.parseExpr(0)
		if perr != nil {
			return 0, "", false, 0, perr
		}
		if p.tok.kind != tokRParen {
			return 0, "", false, 0, &Error{Msg: "expected ')'"}
		}
		p.next()
		return v, "", false, 0, nil
	case tokIdent:
		ident := p.tok.text
		p.next()
		if p.tok.kind == tokLBracket {
			p.next()
			i, perr := p.parseExpr(0)
			if perr != nil {
				return 0, "", false, 0, perr
			}
			if p.tok.kind != tokRBracket {
				return 0, "", false, 0, &Error{Msg: "expected ']'"}
			}
			p.next()
			return p.vars.GetIndexed(ident, i), ident, true, i, nil
		}
		return p.vars.Get(ident), ident, false, 0, nil
	default:
		return 0, "", false, 0, &Error{Msg: fmt.Sprintf("unexpected token %q", p.tok.text)}
	}
}

func (p *parser) applyBinary(op string, l, r int64) (int64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			if p.lenient {
				return 0, nil
			}
			return 0, &Error{Msg: "division by zero"}
		}
		return l / r, nil
	case "%":
		if r == 0 {
			if p.lenient {
				return 0, nil
			}
			return 0, &Error{Msg: "division by zero"}
		}
		return l % r, nil
	case "**":
		return intPow(l, r), nil
	case "&":
		return l & r, nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "<<":
		return l << uint64(r), nil
	case ">>":
		return l >> uint64(r), nil
	case "<":
		return boolInt(l < r), nil
	case "<=":
		return boolInt(l <= r), nil
	case ">":
		return boolInt(l > r), nil
	case ">=":
		return boolInt(l >= r), nil
	case "==":
		return boolInt(l == r), nil
	case "!=":
		return boolInt(l != r), nil
	default:
		return 0, &Error{Msg: fmt.Sprintf("unsupported operator %q", op)}
	}
}

func intPow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
