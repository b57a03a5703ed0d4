package parser

import "testing"

func FuzzParse(f *testing.F) {
	seeds := []string{
		`item.name`,
		`item.items[0].price > 100`,
		`trim(item.name)`,
		`item.items.filter(x => x.active)`,
		`$if(item.flag, "yes", "no")`,
		`1 + 2 * 3`,
		``,
		`(`,
		`item.`,
		`{{ item.name }}`,
		`[1, , 3]`,
		`{ [item.key]: 1 }`,
		`a ? b : c`,
		`2 ** 3 ** 2`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		_, _ = ParseExpression(input)
	})
}
