package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/parishkit/formengine/pkg/visibility"
)

// Evaluator is a small, dependency-free visibility evaluator.
//
// Supported syntax:
// - truthy checks: `consent`
// - comparisons: `age >= 18`, `country == "US"`, `count != 3`
// - boolean composition: `a == true && b != false`, `a || b`, `!a`, parentheses
//
// `&&` binds tighter than `||`. Evaluation is permissive: an empty rule, a
// rule that fails to parse, or an atom whose value cannot be coerced for the
// requested comparison all lean toward visible rather than hiding content.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Eval implements visibility.Evaluator.
func (e *Evaluator) Eval(rule string, ctx visibility.Context) bool {
	return Evaluate(rule, ctx.Values)
}

// Evaluate resolves a rule against a flat value map. Unresolvable rules are
// treated as true so an authoring mistake never hides a field.
func Evaluate(rule string, values map[string]any) bool {
	node, err := Parse(rule)
	if err != nil || node == nil {
		return true
	}
	return node.eval(values)
}

// Parse compiles a rule for authoring-time diagnostics. A nil node with a
// nil error means the rule is empty (always visible).
func Parse(rule string) (Node, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return nil, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

// Node is a parsed visibility expression.
type Node interface {
	eval(values map[string]any) bool
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenEq
	tokenNeq
	tokenGte
	tokenLte
	tokenGt
	tokenLt
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	consume := func() byte {
		if i >= len(input) {
			return 0
		}
		ch := input[i]
		i++
		return ch
	}

	for i < len(input) {
		ch := next()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			consume()
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			continue
		case ')':
			consume()
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			continue
		case '!':
			consume()
			if next() == '=' {
				consume()
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			continue
		case '=':
			consume()
			if next() != '=' {
				return nil, fmt.Errorf("visibility/expr: unexpected '='; use '=='")
			}
			consume()
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
			continue
		case '>':
			consume()
			if next() == '=' {
				consume()
				tokens = append(tokens, token{kind: tokenGte, raw: ">="})
				continue
			}
			tokens = append(tokens, token{kind: tokenGt, raw: ">"})
			continue
		case '<':
			consume()
			if next() == '=' {
				consume()
				tokens = append(tokens, token{kind: tokenLte, raw: "<="})
				continue
			}
			tokens = append(tokens, token{kind: tokenLt, raw: "<"})
			continue
		case '&':
			consume()
			if next() != '&' {
				return nil, fmt.Errorf("visibility/expr: unexpected '&'; use '&&'")
			}
			consume()
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
			continue
		case '|':
			consume()
			if next() != '|' {
				return nil, fmt.Errorf("visibility/expr: unexpected '|'; use '||'")
			}
			consume()
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
			continue
		case '"', '\'':
			quote := consume()
			start := i
			escaped := false
			for i < len(input) {
				c := consume()
				if escaped {
					escaped = false
					continue
				}
				if c == '\\' {
					escaped = true
					continue
				}
				if c == quote {
					raw := `"` + strings.ReplaceAll(input[start:i-1], `\`+string(quote), string(quote)) + `"`
					value, err := strconv.Unquote(raw)
					if err != nil {
						// keep the raw body; a literal should not fail the rule
						value = input[start : i-1]
					}
					tokens = append(tokens, token{kind: tokenString, raw: value})
					goto nextToken
				}
			}
			return nil, fmt.Errorf("visibility/expr: unterminated string literal")
		default:
			start := i
			for i < len(input) {
				c := input[i]
				if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' ||
					c == '!' || c == '=' || c == '&' || c == '|' || c == '>' || c == '<' {
					break
				}
				i++
			}
			raw := strings.TrimSpace(input[start:i])
			if raw == "" {
				continue
			}
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}

	nextToken:
		continue
	}

	return tokens, nil
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type exprOr struct{ left, right Node }

func (n exprOr) eval(values map[string]any) bool {
	return n.left.eval(values) || n.right.eval(values)
}

type exprAnd struct{ left, right Node }

func (n exprAnd) eval(values map[string]any) bool {
	return n.left.eval(values) && n.right.eval(values)
}

type exprNot struct{ inner Node }

func (n exprNot) eval(values map[string]any) bool {
	return !n.inner.eval(values)
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
)

type literal struct {
	kind literalKind
	raw  string
}

type exprCompare struct {
	identifier string
	op         tokenKind
	literal    literal
}

func (n exprCompare) eval(values map[string]any) bool {
	value := values[n.identifier]

	switch n.literal.kind {
	case litBool:
		want := n.literal.raw == "true"
		got, _ := coerceBool(value)
		switch n.op {
		case tokenEq:
			return got == want
		case tokenNeq:
			return got != want
		}
		// relational over booleans follows numeric coercion
		return compareNumbers(boolToFloat(got), n.op, boolToFloat(want))
	case litNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return true
		}
		got, ok := coerceNumber(value)
		if !ok {
			// missing or non-numeric value: only != holds, mirroring NaN
			return n.op == tokenNeq
		}
		return compareNumbers(got, n.op, want)
	default:
		want := n.literal.raw
		got := coerceString(value)
		return compareStrings(got, n.op, want)
	}
}

type exprTruthy struct{ identifier string }

func (n exprTruthy) eval(values map[string]any) bool {
	value, ok := values[n.identifier]
	if !ok {
		return false
	}
	return truthy(value)
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseOr(stream *tokenStream) (Node, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (Node, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (Node, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (Node, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, fmt.Errorf("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, fmt.Errorf("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenGte, tokenLte, tokenGt, tokenLt} {
		if stream.match(op) {
			lit, err := stream.consumeLiteral()
			if err != nil {
				return nil, err
			}
			return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
		}
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	if s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	if s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, fmt.Errorf("visibility/expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		return literal{kind: litNumber, raw: tok.raw}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenIdentifier:
		// bare identifiers on the right read as strings to keep rules forgiving
		return literal{kind: litString, raw: tok.raw}, nil
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}

func compareNumbers(got float64, op tokenKind, want float64) bool {
	switch op {
	case tokenEq:
		return got == want
	case tokenNeq:
		return got != want
	case tokenGte:
		return got >= want
	case tokenLte:
		return got <= want
	case tokenGt:
		return got > want
	case tokenLt:
		return got < want
	}
	return true
}

func compareStrings(got string, op tokenKind, want string) bool {
	switch op {
	case tokenEq:
		return got == want
	case tokenNeq:
		return got != want
	case tokenGte:
		return got >= want
	case tokenLte:
		return got <= want
	case tokenGt:
		return got > want
	case tokenLt:
		return got < want
	}
	return true
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	if value == nil {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return parsed, true
		}
		return strings.TrimSpace(v) != "", true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		return boolToFloat(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
