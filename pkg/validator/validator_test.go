package validator

import (
	"testing"

	"github.com/flowkit/safeexpr/pkg/parser"
	"github.com/flowkit/safeexpr/pkg/types"
)

type stubFunctions map[string]bool

func (s stubFunctions) Has(name string) bool { return s[name] }

func TestAcceptsOrdinarySafeExpression(t *testing.T) {
	root, err := parser.Parse("item.name == \"x\" && item.value > 0")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if !res.Accepted {
		t.Fatalf("expected accepted, got violations: %+v", res.Violations)
	}
}

func TestRejectsBlockedIdentifier(t *testing.T) {
	root, err := parser.Parse("eval")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for blocked identifier eval")
	}
}

func TestRejectsBlockedProperty(t *testing.T) {
	root, err := parser.Parse("item.constructor")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for blocked property constructor")
	}
}

func TestRejectsBlockedComputedProperty(t *testing.T) {
	root, err := parser.Parse(`item["__proto__"]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for computed __proto__ access")
	}
}

func TestRejectsPrototypePollutionChain(t *testing.T) {
	root, err := parser.Parse("item.__proto__.polluted")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for prototype-pollution chain")
	}
}

func TestAcceptsRegisteredBareCall(t *testing.T) {
	root, err := parser.Parse(`trim(item.name)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{"trim": true})
	res := v.Validate(root)
	if !res.Accepted {
		t.Fatalf("expected accepted, got %+v", res.Violations)
	}
}

func TestRejectsUnregisteredBareCall(t *testing.T) {
	root, err := parser.Parse(`doSomethingDangerous(item)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for unregistered call target")
	}
}

func TestAcceptsQualifiedNamespaceCall(t *testing.T) {
	root, err := parser.Parse(`Math.floor(item.value)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{"Math.floor": true})
	res := v.Validate(root)
	if !res.Accepted {
		t.Fatalf("expected accepted, got %+v", res.Violations)
	}
}

func TestAcceptsCallbackMethodWithArrow(t *testing.T) {
	root, err := parser.Parse(`item.items.filter(x => x.active)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if !res.Accepted {
		t.Fatalf("expected accepted, got %+v", res.Violations)
	}
}

func TestRejectsCallbackMethodWithoutArrow(t *testing.T) {
	root, err := parser.Parse(`item.items.filter(item.predicate)`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection when callback method's first argument is not an arrow")
	}
}

func TestRejectsInstanceofOperator(t *testing.T) {
	root, err := parser.Parse("item instanceof Array")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for instanceof")
	}
}

func TestRejectsTypeofOperator(t *testing.T) {
	root, err := parser.Parse("typeof item")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for typeof as a unary operator in user expressions")
	}
}

func TestRejectsArrowWithTooManyParams(t *testing.T) {
	root, err := parser.Parse("(a, b, c, d, e) => a")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for arrow with 5 parameters")
	}
}

func TestRejectsArrowParamInDenylist(t *testing.T) {
	root, err := parser.Parse("eval => eval")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for arrow parameter named eval")
	}
}

func TestRejectsDangerousLiteral(t *testing.T) {
	root, err := parser.Parse(`"javascript:alert(1)"`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected rejection for javascript: literal")
	}
}

func TestWarnsOnLongMemberChain(t *testing.T) {
	root, err := parser.Parse("item.a.b.c.d.e.f.g.h.i.j.k.l")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	res := v.Validate(root)
	if !res.Accepted {
		t.Fatalf("warnings must not block acceptance, got %+v", res.Violations)
	}
	found := false
	for _, viol := range res.Violations {
		if viol.Type == "member-chain-too-long" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a member-chain-too-long warning")
	}
}

func TestCustomRuleAddsViolation(t *testing.T) {
	root, err := parser.Parse("item.value")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := New(stubFunctions{})
	v.AddRule(Rule{
		Type:     "no-value-property",
		Severity: SeverityError,
		Check: func(n *types.Node) (bool, string, string) {
			if n.Kind == types.KindMember && n.PropertyName == "value" {
				return true, "value property is forbidden by policy", "rename the field"
			}
			return false, "", ""
		},
	})
	res := v.Validate(root)
	if res.Accepted {
		t.Fatal("expected custom rule to reject item.value")
	}
}
