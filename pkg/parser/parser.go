package parser

import (
	"strconv"

	"github.com/flowkit/safeexpr/pkg/types"
)

// Parser is a recursive-descent parser over the token stream produced by
// Lexer, building types.Node trees. The grammar and precedence climbing
// structure mirror the teacher's pkg/parser/parser.go and parser_impl.go
// (a Pratt-style expression parser with a led/nud table), retargeted from
// JSONata path syntax to this spec's C-family expression grammar.
type Parser struct {
	lex    *Lexer
	tok    Token
	ahead  *Token
	source string
	err    *types.Error
}

// NewParser creates a parser over source.
func NewParser(source string) *Parser {
	p := &Parser{lex: NewLexer(source), source: source}
	p.advance()
	return p
}

// Parse consumes the full token stream and returns the root expression
// node. An expression must consume every token; trailing input is a
// parse error.
func Parse(source string) (*types.Node, *types.Error) {
	p := NewParser(source)
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.Type == TokenEOF {
		return nil, types.NewError(types.ErrNotAnExpression, "empty expression", 0)
	}
	node := p.parseExpression(0)
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.Type != TokenEOF {
		return nil, types.NewError(types.ErrUnexpectedToken, "unexpected trailing token "+p.tok.Value, p.tok.Pos)
	}
	return node, nil
}

func (p *Parser) advance() {
	if p.ahead != nil {
		p.tok = *p.ahead
		p.ahead = nil
		return
	}
	p.tok = p.lex.Next()
	if p.tok.Type == TokenError {
		p.err = types.NewError(types.ErrUnexpectedToken, p.tok.Value, p.tok.Pos)
	}
}

func (p *Parser) peekAhead() Token {
	if p.ahead == nil {
		t := p.lex.Next()
		p.ahead = &t
	}
	return *p.ahead
}

func (p *Parser) pos() types.Position {
	return byteOffsetToPosition(p.source, p.tok.Pos)
}

// byteOffsetToPosition converts a byte offset into a 1-based line/column
// position, scanning the source once. Expressions are short, so this
// linear scan is cheap relative to parsing itself.
func byteOffsetToPosition(source string, offset int) types.Position {
	line, col := 1, 1
	for i := 0; i < offset && i < len(source); i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return types.Position{Line: line, Column: col}
}

func (p *Parser) fail(code types.ErrorCode, msg string) {
	if p.err == nil {
		p.err = types.NewError(code, msg, p.tok.Pos)
	}
}

func (p *Parser) expect(tt TokenType, msg string) Token {
	if p.tok.Type != tt {
		p.fail(types.ErrUnexpectedToken, msg)
		return p.tok
	}
	t := p.tok
	p.advance()
	return t
}

// Binding powers, low to high. Ternary and arrow bind loosest.
const (
	bpLowest = iota
	bpCoalesce
	bpOr
	bpAnd
	bpEquality
	bpRelational
	bpIn
	bpAdditive
	bpMultiplicative
	bpExponent
	bpUnary
	bpPostfix
)

func (p *Parser) parseExpression(minBP int) *types.Node {
	left := p.parseUnary()
	if p.err != nil {
		return left
	}
	for {
		bp, rightAssoc, op, kind := infixInfo(p.tok.Type)
		if bp == 0 || bp < minBP {
			break
		}
		opPos := p.pos()
		p.advance()
		nextMin := bp + 1
		if rightAssoc {
			nextMin = bp
		}
		right := p.parseExpression(nextMin)
		if p.err != nil {
			return left
		}
		left = &types.Node{Kind: kind, Op: op, Left: left, Right: right, Pos: opPos}
	}
	if p.tok.Type == TokenQuestion && bpLowest >= minBP {
		left = p.parseConditional(left)
	}
	return left
}

func infixInfo(tt TokenType) (bp int, rightAssoc bool, op string, kind types.NodeKind) {
	switch tt {
	case TokenCoalesce:
		return bpCoalesce, false, "??", types.KindLogical
	case TokenOrOr:
		return bpOr, false, "||", types.KindLogical
	case TokenAndAnd:
		return bpAnd, false, "&&", types.KindLogical
	case TokenEqEq:
		return bpEquality, false, "==", types.KindBinary
	case TokenEqEqEq:
		return bpEquality, false, "===", types.KindBinary
	case TokenNotEq:
		return bpEquality, false, "!=", types.KindBinary
	case TokenNotEqEq:
		return bpEquality, false, "!==", types.KindBinary
	case TokenLess:
		return bpRelational, false, "<", types.KindBinary
	case TokenLessEq:
		return bpRelational, false, "<=", types.KindBinary
	case TokenGreater:
		return bpRelational, false, ">", types.KindBinary
	case TokenGreaterEq:
		return bpRelational, false, ">=", types.KindBinary
	case TokenInstanceof:
		return bpRelational, false, "instanceof", types.KindBinary
	case TokenIn:
		return bpIn, false, "in", types.KindBinary
	case TokenPlus:
		return bpAdditive, false, "+", types.KindBinary
	case TokenMinus:
		return bpAdditive, false, "-", types.KindBinary
	case TokenStar:
		return bpMultiplicative, false, "*", types.KindBinary
	case TokenSlash:
		return bpMultiplicative, false, "/", types.KindBinary
	case TokenPercent:
		return bpMultiplicative, false, "%", types.KindBinary
	case TokenStarStar:
		return bpExponent, true, "**", types.KindBinary
	default:
		return 0, false, "", ""
	}
}

func (p *Parser) parseConditional(test *types.Node) *types.Node {
	pos := p.pos()
	p.advance() // '?'
	consequent := p.parseExpression(bpLowest)
	if p.err != nil {
		return test
	}
	p.expect(TokenColon, "expected ':' in conditional expression")
	if p.err != nil {
		return test
	}
	alternate := p.parseExpression(bpLowest)
	return &types.Node{Kind: types.KindConditional, Test: test, Consequent: consequent, Alternate: alternate, Pos: pos}
}

func (p *Parser) parseUnary() *types.Node {
	switch p.tok.Type {
	case TokenMinus, TokenPlus, TokenBang:
		op := p.tok.Value
		pos := p.pos()
		p.advance()
		arg := p.parseUnaryOperand()
		return &types.Node{Kind: types.KindUnary, Op: op, Left: arg, Pos: pos}
	case TokenTypeof:
		pos := p.pos()
		p.advance()
		arg := p.parseUnaryOperand()
		return &types.Node{Kind: types.KindUnary, Op: "typeof", Left: arg, Pos: pos}
	case TokenDelete, TokenVoid, TokenNew:
		// Recognized so the validator can reject them explicitly (spec.md
		// §4.E rule 6) rather than surfacing as a generic parse error.
		op := p.tok.Value
		pos := p.pos()
		p.advance()
		arg := p.parseUnaryOperand()
		return &types.Node{Kind: types.KindUnary, Op: op, Left: arg, Pos: pos}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

func (p *Parser) parseUnaryOperand() *types.Node {
	node := p.parseUnary()
	if p.err != nil {
		return node
	}
	return p.parsePostfix(node)
}

func (p *Parser) parsePostfix(node *types.Node) *types.Node {
	for p.err == nil {
		switch p.tok.Type {
		case TokenDot:
			pos := p.pos()
			p.advance()
			if p.tok.Type != TokenName {
				p.fail(types.ErrUnexpectedToken, "expected property name after '.'")
				return node
			}
			name := p.tok.Value
			p.advance()
			node = &types.Node{Kind: types.KindMember, Object: node, PropertyName: name, Computed: false, Pos: pos}
		case TokenBracketOpen:
			pos := p.pos()
			p.advance()
			idx := p.parseExpression(bpLowest)
			if p.err != nil {
				return node
			}
			p.expect(TokenBracketClose, "expected ']'")
			node = &types.Node{Kind: types.KindMember, Object: node, Property: idx, Computed: true, Pos: pos}
		case TokenParenOpen:
			pos := p.pos()
			args := p.parseArguments()
			if p.err != nil {
				return node
			}
			node = &types.Node{Kind: types.KindCall, Callee: node, Arguments: args, Pos: pos}
		default:
			return node
		}
	}
	return node
}

func (p *Parser) parseArguments() []*types.Node {
	p.advance() // '('
	var args []*types.Node
	if p.tok.Type == TokenParenClose {
		p.advance()
		return args
	}
	for {
		arg := p.parseArrowOrExpression()
		if p.err != nil {
			return args
		}
		args = append(args, arg)
		if p.tok.Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokenParenClose, "expected ')' to close argument list")
	return args
}

// parseArrowOrExpression disambiguates `name => expr` and `(a, b) => expr`
// arrow literals from ordinary parenthesized expressions by speculatively
// scanning ahead, the same lookahead approach the teacher's parser uses to
// disambiguate JSONata's block vs. object-constructor braces.
func (p *Parser) parseArrowOrExpression() *types.Node {
	if p.tok.Type == TokenName {
		if ahead := p.peekAhead(); ahead.Type == TokenArrow {
			name := p.tok.Value
			p.advance()
			return p.parseArrow([]string{name})
		}
	}
	if p.tok.Type == TokenParenOpen {
		if params, ok := p.tryParseArrowParamList(); ok {
			return p.parseArrow(params)
		}
	}
	return p.parseExpression(bpLowest)
}

// tryParseArrowParamList attempts to parse "(a, b, c)" followed by "=>" by
// scanning the lexer's token stream via a saved-state restore. Since Lexer
// does not support multi-token lookahead directly, a sub-parser is run over
// a cloned lexer position; on failure the original parser state is left
// untouched.
func (p *Parser) tryParseArrowParamList() (params []string, ok bool) {
	saveLex := *p.lex
	saveTok := p.tok
	saveAhead := p.ahead
	saveErr := p.err

	restore := func() {
		*p.lex = saveLex
		p.tok = saveTok
		p.ahead = saveAhead
		p.err = saveErr
	}

	p.advance() // '('
	var names []string
	for p.tok.Type == TokenName {
		names = append(names, p.tok.Value)
		p.advance()
		if p.tok.Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	if p.tok.Type != TokenParenClose {
		restore()
		return nil, false
	}
	p.advance()
	if p.tok.Type != TokenArrow {
		restore()
		return nil, false
	}
	return names, true
}

func (p *Parser) parseArrow(params []string) *types.Node {
	pos := p.pos()
	p.advance() // '=>'
	body := p.parseExpression(bpLowest)
	return &types.Node{Kind: types.KindArrow, Params: params, Body: body, Pos: pos}
}

func (p *Parser) parsePrimary() *types.Node {
	pos := p.pos()
	switch p.tok.Type {
	case TokenNumber:
		n, err := strconv.ParseFloat(p.tok.Value, 64)
		if err != nil {
			p.fail(types.ErrInvalidNumber, "invalid number literal "+p.tok.Value)
			return types.NewLiteralNumber(0, pos)
		}
		p.advance()
		return types.NewLiteralNumber(n, pos)
	case TokenString:
		s := p.tok.Value
		p.advance()
		return types.NewLiteralString(s, pos)
	case TokenBoolean:
		b := p.tok.Value == "true"
		p.advance()
		return types.NewLiteralBool(b, pos)
	case TokenNull:
		p.advance()
		return types.NewLiteralNull(pos)
	case TokenUndefined:
		p.advance()
		return types.NewIdentifier("undefined", pos)
	case TokenName:
		name := p.tok.Value
		if ahead := p.peekAhead(); ahead.Type == TokenArrow {
			p.advance()
			return p.parseArrow([]string{name})
		}
		p.advance()
		return types.NewIdentifier(name, pos)
	case TokenParenOpen:
		if params, ok := p.tryParseArrowParamList(); ok {
			return p.parseArrow(params)
		}
		p.advance()
		inner := p.parseExpression(bpLowest)
		if p.err != nil {
			return inner
		}
		p.expect(TokenParenClose, "expected ')'")
		return inner
	case TokenBracketOpen:
		return p.parseArrayLiteral()
	case TokenBraceOpen:
		return p.parseObjectLiteral()
	default:
		p.fail(types.ErrUnexpectedToken, "unexpected token "+p.tok.Value)
		return types.NewLiteralNull(pos)
	}
}

func (p *Parser) parseArrayLiteral() *types.Node {
	pos := p.pos()
	p.advance() // '['
	var elems []*types.Node
	if p.tok.Type == TokenBracketClose {
		p.advance()
		return &types.Node{Kind: types.KindArray, Elements: elems, Pos: pos}
	}
	for {
		if p.tok.Type == TokenComma {
			// elision: array hole
			elems = append(elems, nil)
			p.advance()
			continue
		}
		if p.tok.Type == TokenBracketClose {
			break
		}
		el := p.parseArrowOrExpression()
		if p.err != nil {
			return &types.Node{Kind: types.KindArray, Elements: elems, Pos: pos}
		}
		elems = append(elems, el)
		if p.tok.Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokenBracketClose, "expected ']' to close array literal")
	return &types.Node{Kind: types.KindArray, Elements: elems, Pos: pos}
}

func (p *Parser) parseObjectLiteral() *types.Node {
	pos := p.pos()
	p.advance() // '{'
	var props []types.ObjectProperty
	if p.tok.Type == TokenBraceClose {
		p.advance()
		return &types.Node{Kind: types.KindObject, Properties: props, Pos: pos}
	}
	for {
		prop, ok := p.parseObjectProperty()
		if !ok || p.err != nil {
			return &types.Node{Kind: types.KindObject, Properties: props, Pos: pos}
		}
		props = append(props, prop)
		if p.tok.Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokenBraceClose, "expected '}' to close object literal")
	return &types.Node{Kind: types.KindObject, Properties: props, Pos: pos}
}

func (p *Parser) parseObjectProperty() (types.ObjectProperty, bool) {
	var key *types.Node
	computed := false
	keyPos := p.pos()
	switch p.tok.Type {
	case TokenName:
		key = types.NewIdentifier(p.tok.Value, keyPos)
		p.advance()
	case TokenString:
		key = types.NewLiteralString(p.tok.Value, keyPos)
		p.advance()
	case TokenNumber:
		n, err := strconv.ParseFloat(p.tok.Value, 64)
		if err != nil {
			p.fail(types.ErrInvalidNumber, "invalid number literal in object key")
			return types.ObjectProperty{}, false
		}
		key = types.NewLiteralNumber(n, keyPos)
		p.advance()
	case TokenBracketOpen:
		p.advance()
		key = p.parseExpression(bpLowest)
		if p.err != nil {
			return types.ObjectProperty{}, false
		}
		p.expect(TokenBracketClose, "expected ']' to close computed key")
		computed = true
	default:
		p.fail(types.ErrUnexpectedToken, "expected object property key")
		return types.ObjectProperty{}, false
	}
	p.expect(TokenColon, "expected ':' after object property key")
	if p.err != nil {
		return types.ObjectProperty{}, false
	}
	val := p.parseArrowOrExpression()
	return types.ObjectProperty{Key: key, Value: val, Computed: computed}, true
}
