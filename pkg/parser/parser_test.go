package parser

import (
	"testing"

	"github.com/flowkit/safeexpr/pkg/types"
)

func mustParse(t *testing.T, src string) *types.Node {
	t.Helper()
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return n
}

func TestParsesLiterals(t *testing.T) {
	cases := map[string]types.ScalarKind{
		`42`:      types.ScalarNumber,
		`3.14`:    types.ScalarNumber,
		`"hi"`:    types.ScalarString,
		`'hi'`:    types.ScalarString,
		`true`:    types.ScalarBoolean,
		`false`:   types.ScalarBoolean,
		`null`:    types.ScalarNull,
	}
	for src, want := range cases {
		n := mustParse(t, src)
		if n.Kind != types.KindLiteral || n.ScalarKind != want {
			t.Errorf("Parse(%q) = %+v, want scalar kind %v", src, n, want)
		}
	}
	// undefined is kept as an identifier so the evaluator resolves it to the
	// Undefined singleton rather than to null.
	if n := mustParse(t, `undefined`); n.Kind != types.KindIdentifier || n.Name != "undefined" {
		t.Errorf("Parse(%q) = %+v, want identifier undefined", `undefined`, n)
	}
}

func TestParsesMemberChain(t *testing.T) {
	n := mustParse(t, "item.name.trim")
	if n.Kind != types.KindMember || n.PropertyName != "trim" {
		t.Fatalf("outer node: %+v", n)
	}
	if n.Object.Kind != types.KindMember || n.Object.PropertyName != "name" {
		t.Fatalf("middle node: %+v", n.Object)
	}
	if n.Object.Object.Kind != types.KindIdentifier || n.Object.Object.Name != "item" {
		t.Fatalf("root node: %+v", n.Object.Object)
	}
}

func TestParsesComputedMember(t *testing.T) {
	n := mustParse(t, `inputs["key"]`)
	if !n.Computed || n.Property.Kind != types.KindLiteral {
		t.Fatalf("got %+v", n)
	}
}

func TestParsesCallWithArguments(t *testing.T) {
	n := mustParse(t, `trim(item.name, "x")`)
	if n.Kind != types.KindCall || len(n.Arguments) != 2 {
		t.Fatalf("got %+v", n)
	}
	if n.Callee.Kind != types.KindIdentifier || n.Callee.Name != "trim" {
		t.Fatalf("callee %+v", n.Callee)
	}
}

func TestParsesDollarPrefixedIdentifier(t *testing.T) {
	n := mustParse(t, `$if(true, 1, 2)`)
	if n.Kind != types.KindCall || n.Callee.Name != "$if" {
		t.Fatalf("got %+v", n)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 must parse as 1 + (2 * 3).
	n := mustParse(t, "1 + 2 * 3")
	if n.Kind != types.KindBinary || n.Op != "+" {
		t.Fatalf("got %+v", n)
	}
	if n.Right.Kind != types.KindBinary || n.Right.Op != "*" {
		t.Fatalf("right operand not multiplicative: %+v", n.Right)
	}
}

func TestExponentIsRightAssociative(t *testing.T) {
	// 2 ** 3 ** 2 must parse as 2 ** (3 ** 2).
	n := mustParse(t, "2 ** 3 ** 2")
	if n.Op != "**" || n.Right.Op != "**" {
		t.Fatalf("got %+v", n)
	}
}

func TestParsesTernary(t *testing.T) {
	n := mustParse(t, "a ? b : c")
	if n.Kind != types.KindConditional {
		t.Fatalf("got %+v", n)
	}
}

func TestParsesArrowSingleParam(t *testing.T) {
	n := mustParse(t, "x => x.active")
	if n.Kind != types.KindArrow || len(n.Params) != 1 || n.Params[0] != "x" {
		t.Fatalf("got %+v", n)
	}
}

func TestParsesArrowMultiParam(t *testing.T) {
	n := mustParse(t, "(acc, x) => acc + x")
	if n.Kind != types.KindArrow || len(n.Params) != 2 {
		t.Fatalf("got %+v", n)
	}
}

func TestParenthesizedExpressionIsNotArrow(t *testing.T) {
	n := mustParse(t, "(1 + 2) * 3")
	if n.Kind != types.KindBinary || n.Op != "*" {
		t.Fatalf("got %+v", n)
	}
}

func TestParsesArrayLiteralWithHole(t *testing.T) {
	n := mustParse(t, "[1, , 3]")
	if n.Kind != types.KindArray || len(n.Elements) != 3 || n.Elements[1] != nil {
		t.Fatalf("got %+v", n)
	}
}

func TestParsesObjectLiteralWithComputedKey(t *testing.T) {
	n := mustParse(t, `{ [item.key]: 1, name: "x" }`)
	if n.Kind != types.KindObject || len(n.Properties) != 2 {
		t.Fatalf("got %+v", n)
	}
	if !n.Properties[0].Computed {
		t.Fatalf("expected first property computed: %+v", n.Properties[0])
	}
}

func TestRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("1 + 2 3")
	if err == nil {
		t.Fatal("expected trailing token error")
	}
}

func TestRejectsUnterminatedString(t *testing.T) {
	_, err := Parse(`"unterminated`)
	if err == nil {
		t.Fatal("expected unterminated string error")
	}
}

func TestRejectsEmptyExpression(t *testing.T) {
	_, err := Parse("")
	if err == nil {
		t.Fatal("expected error for empty expression")
	}
}

func TestTypeofAndDeleteParseAsUnary(t *testing.T) {
	n := mustParse(t, "typeof item")
	if n.Kind != types.KindUnary || n.Op != "typeof" {
		t.Fatalf("got %+v", n)
	}
	n2 := mustParse(t, "delete item.x")
	if n2.Kind != types.KindUnary || n2.Op != "delete" {
		t.Fatalf("got %+v", n2)
	}
}
