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

// Package parser bridges a command line to our ast.Node tree (spec
// §4.2 Parse stage) using mvdan.cc/sh/v3/syntax as the external parser
// library collaborator. The bridge reconstructs each word's literal
// source text (quotes and all) rather than resolving any expansion
// itself; pkg/shell/expand owns every expansion rule end to end.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/sandboxrt/core/pkg/shell/ast"
)

// ParseError is a single-line diagnostic surfaced on stderr with exit
// code 2.
type ParseError struct {
	Line, Col int
	Msg       string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sh: syntax error (line %d, col %d): %s", e.Line, e.Col, e.Msg)
}

// Parse tokenizes and parses a full command line into a single ast.Node
// (a Sequence chain if the line has more than one top-level statement).
func Parse(src string) (ast.Node, error) {
	r := strings.NewReader(src)
	p := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := p.Parse(r, "")
	if err != nil {
		if se, ok := err.(syntax.ParseError); ok {
			return nil, &ParseError{Line: se.Pos.Line(), Col: se.Pos.Col(), Msg: se.Text}
		}
		return nil, &ParseError{Msg: err.Error()}
	}
	return stmtsToNode(file.Stmts), nil
}

func stmtsToNode(stmts []*syntax.Stmt) ast.Node {
	var result ast.Node
	for _, s := range stmts {
		n := stmtToNode(s)
		if result == nil {
			result = n
		} else {
			result = &ast.Sequence{L: result, R: n}
		}
	}
	if result == nil {
		return &ast.Sequence{} // empty line: no-op
	}
	return result
}

func stmtToNode(s *syntax.Stmt) ast.Node {
	n := cmdToNode(s.Cmd)
	if len(s.Redirs) > 0 {
		if simple, ok := n.(*ast.Simple); ok {
			simple.Redirects = append(simple.Redirects, redirectsToAST(s.Redirs)...)
		} else {
			// Redirects on compound commands are dropped: the group is
			// wrapped as a pipeline of one and runs with the caller's streams.
			n = &ast.Pipeline{Commands: []ast.Node{wrapRedirects(n, s.Redirs)}}
		}
	}
	if s.Negated {
		n = &ast.Pipeline{Commands: []ast.Node{n}, Negate: true}
	}
	if s.Background {
		n = &ast.Background{Cmd: n}
	}
	return n
}

// wrapRedirects groups a compound command under a Brace so it still
// executes as one unit. Redirects attached directly to a compound
// command (`{ cmds; } > file`) are rare enough in practice that this
// core does not thread them through; only per-simple-command redirects
// are applied.
func wrapRedirects(body ast.Node, redirs []*syntax.Redirect) ast.Node {
	return &ast.Brace{Body: body}
}

func cmdToNode(cmd syntax.Command) ast.Node {
	switch c := cmd.(type) {
	case *syntax.CallExpr:
		return callToSimple(c)
	case *syntax.BinaryCmd:
		x := stmtToNode(c.X)
		y := stmtToNode(c.Y)
		switch c.Op {
		case syntax.AndStmt:
			return &ast.And{L: x, R: y}
		case syntax.OrStmt:
			return &ast.Or{L: x, R: y}
		case syntax.Pipe, syntax.PipeAll:
			return flattenPipeline(x, y)
		}
		return &ast.Sequence{L: x, R: y}
	case *syntax.Block:
		return &ast.Brace{Body: stmtsToNode(c.Stmts)}
	case *syntax.Subshell:
		return &ast.Subshell{Body: stmtsToNode(c.Stmts)}
	case *syntax.IfClause:
		return ifToNode(c)
	case *syntax.WhileClause:
		return &ast.While{
			Condition: stmtsToNode(c.Cond),
			Body:      stmtsToNode(c.Do),
			Negate:    c.Until,
		}
	case *syntax.ForClause:
		return forToNode(c)
	case *syntax.CaseClause:
		return caseToNode(c)
	case *syntax.FuncDecl:
		return &ast.FunctionDef{Name: c.Name.Value, Body: printNode(c.Body)}
	default:
		// Arithmetic commands ((expr)), extended test [[ ]] as a bare
		// command, coprocesses, and select loops are out of scope for
		// this core: it targets the common scripting subset, not a full
		// POSIX shell.
		return &ast.Simple{Name: ":", Args: nil}
	}
}

func flattenPipeline(x, y ast.Node) ast.Node {
	if px, ok := x.(*ast.Pipeline); ok && !px.Negate {
		return &ast.Pipeline{Commands: append(append([]ast.Node(nil), px.Commands...), y)}
	}
	return &ast.Pipeline{Commands: []ast.Node{x, y}}
}

func callToSimple(c *syntax.CallExpr) ast.Node {
	s := &ast.Simple{EnvVars: map[string]string{}}
	for _, a := range c.Assigns {
		s.EnvVars[a.Name.Value] = wordString(a.Value)
	}
	if len(c.Args) == 0 {
		// Bare assignment statement, e.g. `X=1`.
		s.Name = ":"
		return s
	}
	s.Name = wordString(c.Args[0])
	for _, w := range c.Args[1:] {
		s.Args = append(s.Args, wordString(w))
	}
	return s
}

func ifToNode(c *syntax.IfClause) ast.Node {
	node := &ast.If{Conditionals: []ast.Conditional{{
		Condition: stmtsToNode(c.Cond),
		Then:      stmtsToNode(c.Then),
	}}}
	cur := node
	for c.Else != nil {
		if len(c.Else.Cond) > 0 {
			cur.Conditionals = append(cur.Conditionals, ast.Conditional{
				Condition: stmtsToNode(c.Else.Cond),
				Then:      stmtsToNode(c.Else.Then),
			})
			c = c.Else
			continue
		}
		cur.Else = stmtsToNode(c.Else.Then)
		break
	}
	return node
}

func forToNode(c *syntax.ForClause) ast.Node {
	wi, ok := c.Loop.(*syntax.WordIter)
	if !ok {
		// C-style `for ((;;))` loops are out of scope for this core.
		return &ast.Simple{Name: ":"}
	}
	words := make([]string, len(wi.Items))
	for i, w := range wi.Items {
		words[i] = wordString(w)
	}
	return &ast.For{Var: wi.Name.Value, Words: words, Body: stmtsToNode(c.Do)}
}

func caseToNode(c *syntax.CaseClause) ast.Node {
	node := &ast.Case{Word: wordString(c.Word)}
	for _, item := range c.Items {
		patterns := make([]string, len(item.Patterns))
		for i, p := range item.Patterns {
			patterns[i] = wordString(p)
		}
		node.Cases = append(node.Cases, ast.CaseClause{
			Patterns: patterns,
			Body:     stmtsToNode(item.Stmts),
		})
	}
	return node
}

func redirectsToAST(redirs []*syntax.Redirect) []ast.Redirect {
	out := make([]ast.Redirect, 0, len(redirs))
	for _, r := range redirs {
		fd := 1
		if r.N != nil {
			if v, err := strconv.Atoi(r.N.Value); err == nil {
				fd = v
			}
		}
		red := ast.Redirect{FD: fd}
		switch r.Op {
		case syntax.RdrIn:
			red.Mode = ast.RedirectIn
			red.Target = wordString(r.Word)
		case syntax.RdrOut, syntax.ClbOut:
			red.Mode = ast.RedirectOut
			red.Target = wordString(r.Word)
		case syntax.AppOut:
			red.Mode = ast.RedirectAppend
			red.Target = wordString(r.Word)
		case syntax.DplOut, syntax.DplIn:
			red.Mode = ast.RedirectDup
			red.Target = wordString(r.Word)
		case syntax.Hdoc, syntax.DashHdoc:
			red.Mode = ast.RedirectHeredoc
			red.HeredocBody = wordString(r.Hdoc)
			red.StripTabs = r.Op == syntax.DashHdoc
		default:
			red.Mode = ast.RedirectOut
			red.Target = wordString(r.Word)
		}
		out = append(out, red)
	}
	return out
}

// printNode reconstitutes the original source text of a function body
// so it can be stored and re-parsed at call time; function bodies are
// kept as text, not AST, to avoid a cyclic env<->AST tie.
func printNode(s *syntax.Stmt) string {
	var sb strings.Builder
	printer := syntax.NewPrinter()
	_ = printer.Print(&sb, &syntax.File{Stmts: []*syntax.Stmt{s}})
	return sb.String()
}

// wordString reconstructs the literal source text of a word, quotes
// included, so the expansion engine can apply its own quoting rules.
func wordString(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		sb.WriteString(partString(part))
	}
	return sb.String()
}

func partString(part syntax.WordPart) string {
	switch p := part.(type) {
	case *syntax.Lit:
		return p.Value
	case *syntax.SglQuoted:
		if p.Dollar {
			return "$'" + p.Value + "'"
		}
		return "'" + p.Value + "'"
	case *syntax.DblQuoted:
		var sb strings.Builder
		sb.WriteByte('"')
		for _, inner := range p.Parts {
			sb.WriteString(partString(inner))
		}
		sb.WriteByte('"')
		return sb.String()
	case *syntax.ParamExp:
		return paramExpString(p)
	case *syntax.CmdSubst:
		var sb strings.Builder
		printer := syntax.NewPrinter()
		_ = printer.Print(&sb, &syntax.File{Stmts: p.Stmts})
		open := "$("
		if p.Backquotes {
			open = "`"
		}
		closeTok := ")"
		if p.Backquotes {
			closeTok = "`"
		}
		return open + strings.TrimSpace(sb.String()) + closeTok
	case *syntax.ArithmExp:
		return "$((" + arithString(p.X) + "))"
	case *syntax.ExtGlob:
		return p.Op.String() + "(" + p.Pattern.Value + ")"
	default:
		return ""
	}
}

func paramExpString(p *syntax.ParamExp) string {
	name := ""
	if p.Param != nil {
		name = p.Param.Value
	}
	if p.Length {
		return "${#" + name + "}"
	}
	body := name
	if p.Index != nil {
		body += "[" + arithString(p.Index) + "]"
	}
	if p.Exp != nil {
		op := ""
		switch p.Exp.Op {
		case syntax.DefaultUnset, syntax.DefaultUnsetOrNull:
			op = ":-"
		case syntax.AlternateUnset, syntax.AlternateUnsetOrNull:
			op = ":+"
		case syntax.AssignUnset, syntax.AssignUnsetOrNull:
			op = ":="
		case syntax.ErrorUnset, syntax.ErrorUnsetOrNull:
			op = ":?"
		}
		if op != "" {
			return "${" + body + op + wordString(p.Exp.Word) + "}"
		}
	}
	if p.Short {
		return "$" + body
	}
	return "${" + body + "}"
}

// arithString reconstructs an arithmetic expression's literal text. The
// syntax package's Printer has no standalone ArithmExpr entry point, so
// this is a best-effort reconstruction covering the node shapes this
// bridge produces (identifiers, literals, binary/unary/paren forms);
// pkg/shell/arith re-parses the result with its own grammar regardless.
func arithString(expr syntax.ArithmExpr) string {
	if expr == nil {
		return ""
	}
	return arithExprString(expr)
}

func arithExprString(e syntax.ArithmExpr) string {
	switch n := e.(type) {
	case *syntax.Word:
		return wordString(n)
	case *syntax.BinaryArithm:
		return arithExprString(n.X) + " " + n.Op.String() + " " + arithExprString(n.Y)
	case *syntax.UnaryArithm:
		if n.Post {
			return arithExprString(n.X) + n.Op.String()
		}
		return n.Op.String() + arithExprString(n.X)
	case *syntax.ParenArithm:
		return "(" + arithExprString(n.X) + ")"
	default:
		return ""
	}
}
