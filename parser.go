package sieve

import (
	"github.com/d--j/go-sieve/ast"
	"github.com/d--j/go-sieve/internal/lexer"
)

// parser builds the AST with one token of lookahead. Syntax errors are
// reported through the error handler; the parser then resynchronizes to the
// next semicolon or the matching closing brace and keeps going, so one run
// reports as many problems as possible and all well-formed constructs reach
// the validator.
type parser struct {
	lex        *lexer.Lexer
	tok        lexer.Token
	errs       *ErrorHandler
	scriptName string
}

// Parse turns script source into an AST. The returned tree is non-nil iff
// no error was reported.
func Parse(script *Script, errs *ErrorHandler) (*ast.Tree, error) {
	p := &parser{
		lex:        lexer.New(string(script.Source())),
		errs:       errs,
		scriptName: script.Name(),
	}
	p.next()
	tree := ast.NewTree(script.Name())
	for p.tok.Type != lexer.TokenEOF {
		if p.tok.Type == lexer.TokenRightBrace {
			p.errorHere("unbalanced '}'")
			p.next()
			continue
		}
		if cmd := p.parseCommand(); cmd != nil {
			tree.AddCommand(cmd)
		}
	}
	if errs.ErrorCount() > 0 {
		return nil, newError(ErrorNotValid, "parse of script '%s' failed", script.Name())
	}
	return tree, nil
}

func (p *parser) next() {
	for {
		p.tok = p.lex.Next()
		if p.tok.Type != lexer.TokenError {
			return
		}
		// the lexer already consumed the offending input, report and go on
		p.errorHere("%s", p.tok.Str)
	}
}

func (p *parser) position() ast.Position {
	return ast.Position{Line: p.tok.Position.Line, Column: p.tok.Position.Column}
}

func (p *parser) errorHere(format string, args ...any) {
	p.errs.Error(&Location{Script: p.scriptName, Line: p.tok.Position.Line, Column: p.tok.Position.Column}, format, args...)
}

// resync skips input to the next semicolon on the current block level or to
// the matching closing brace, leaving the brace for the caller.
func (p *parser) resync() {
	depth := 0
	for {
		switch p.tok.Type {
		case lexer.TokenEOF:
			return
		case lexer.TokenSemicolon:
			if depth == 0 {
				p.next()
				return
			}
		case lexer.TokenLeftBrace:
			depth++
		case lexer.TokenRightBrace:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

// parseCommand parses one command including its terminating semicolon or
// block. It returns nil after a syntax error.
func (p *parser) parseCommand() *ast.Node {
	if p.tok.Type != lexer.TokenIdentifier {
		p.errorHere("expected a command name, got %s", describeToken(p.tok))
		p.next()
		p.resync()
		return nil
	}
	cmd := &ast.Node{
		Type:       ast.NodeCommand,
		Identifier: p.tok.Str,
		Position:   p.position(),
	}
	p.next()
	if !p.parseArguments(cmd) {
		p.resync()
		return nil
	}
	switch p.tok.Type {
	case lexer.TokenSemicolon:
		p.next()
		return cmd
	case lexer.TokenLeftBrace:
		p.next()
		cmd.HasBlock = true
		for p.tok.Type != lexer.TokenRightBrace {
			if p.tok.Type == lexer.TokenEOF {
				p.errorHere("missing '}' at end of block")
				return cmd
			}
			if sub := p.parseCommand(); sub != nil {
				cmd.AddCommand(sub)
			}
		}
		p.next()
		return cmd
	}
	p.errorHere("expected ';' or a command block, got %s", describeToken(p.tok))
	p.resync()
	return nil
}

// parseArguments parses the argument and test part of a command or test.
func (p *parser) parseArguments(n *ast.Node) bool {
	for {
		switch p.tok.Type {
		case lexer.TokenNumber:
			n.Arguments = append(n.Arguments, &ast.Argument{
				Type: ast.ArgumentNumber, Position: p.position(), Number: p.tok.Num,
			})
			p.next()
		case lexer.TokenString:
			n.Arguments = append(n.Arguments, &ast.Argument{
				Type: ast.ArgumentString, Position: p.position(), Str: p.tok.Str,
			})
			p.next()
		case lexer.TokenTag:
			n.Arguments = append(n.Arguments, &ast.Argument{
				Type: ast.ArgumentTag, Position: p.position(), Tag: p.tok.Str, Ext: int(ExtensionNone),
			})
			p.next()
		case lexer.TokenLeftBracket:
			arg, ok := p.parseStringList()
			if !ok {
				return false
			}
			n.Arguments = append(n.Arguments, arg)
		case lexer.TokenIdentifier:
			// a bare identifier introduces a test
			test, ok := p.parseTest()
			if !ok {
				return false
			}
			n.AddTest(test)
			return true
		case lexer.TokenLeftParen:
			if !p.parseTestList(n) {
				return false
			}
			return true
		default:
			return true
		}
	}
}

func (p *parser) parseStringList() (*ast.Argument, bool) {
	arg := &ast.Argument{Type: ast.ArgumentStringList, Position: p.position(), List: []string{}}
	p.next() // '['
	if p.tok.Type == lexer.TokenRightBracket {
		// empty lists are accepted and match no value
		p.next()
		return arg, true
	}
	for {
		if p.tok.Type != lexer.TokenString {
			p.errorHere("expected a string inside the string list, got %s", describeToken(p.tok))
			return nil, false
		}
		arg.List = append(arg.List, p.tok.Str)
		p.next()
		switch p.tok.Type {
		case lexer.TokenComma:
			p.next()
		case lexer.TokenRightBracket:
			p.next()
			return arg, true
		default:
			p.errorHere("expected ',' or ']' in string list, got %s", describeToken(p.tok))
			return nil, false
		}
	}
}

func (p *parser) parseTest() (*ast.Node, bool) {
	test := &ast.Node{
		Type:       ast.NodeTest,
		Identifier: p.tok.Str,
		Position:   p.position(),
	}
	p.next()
	if !p.parseArguments(test) {
		return nil, false
	}
	return test, true
}

func (p *parser) parseTestList(n *ast.Node) bool {
	p.next() // '('
	for {
		if p.tok.Type != lexer.TokenIdentifier {
			p.errorHere("expected a test name, got %s", describeToken(p.tok))
			return false
		}
		test, ok := p.parseTest()
		if !ok {
			return false
		}
		n.AddTest(test)
		switch p.tok.Type {
		case lexer.TokenComma:
			p.next()
		case lexer.TokenRightParen:
			p.next()
			return true
		default:
			p.errorHere("expected ',' or ')' in test list, got %s", describeToken(p.tok))
			return false
		}
	}
}

func describeToken(t lexer.Token) string {
	switch t.Type {
	case lexer.TokenEOF:
		return "end of script"
	case lexer.TokenIdentifier:
		return "identifier '" + t.Str + "'"
	case lexer.TokenTag:
		return "tag :" + t.Str
	case lexer.TokenNumber:
		return "number"
	case lexer.TokenString:
		return "string"
	case lexer.TokenLeftBracket:
		return "'['"
	case lexer.TokenRightBracket:
		return "']'"
	case lexer.TokenLeftParen:
		return "'('"
	case lexer.TokenRightParen:
		return "')'"
	case lexer.TokenLeftBrace:
		return "'{'"
	case lexer.TokenRightBrace:
		return "'}'"
	case lexer.TokenComma:
		return "','"
	case lexer.TokenSemicolon:
		return "';'"
	}
	return "invalid input"
}
