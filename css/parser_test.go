package css_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"vstyle/css"
)

// allRules collects all top-level rules from a stylesheet's Items.
// It does NOT descend into at-rule blocks.
func allRules(sheet *css.Stylesheet) []*css.Rule {
	var rules []*css.Rule
	for _, item := range sheet.Items {
		if item.Rule != nil {
			rules = append(rules, item.Rule)
		}
	}
	return rules
}

func mustParse(t *testing.T, input string) *css.Stylesheet {
	t.Helper()
	sheet, err := css.NewParser(zap.NewNop()).Parse([]byte(input), "test.css")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return sheet
}

func TestParser_SimpleRule(t *testing.T) {
	sheet := mustParse(t, `p { text-indent: 1em; color: RED; }`)

	rules := allRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	rule := rules[0]
	if got := rule.Selector(); got != "p" {
		t.Errorf("selector = %q, want %q", got, "p")
	}
	if len(rule.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(rule.Declarations))
	}
	// source order is preserved
	if d := rule.Declarations[0]; d.Property != "text-indent" || d.Value != "1em" {
		t.Errorf("first declaration = %+v", d)
	}
	if d := rule.Declarations[1]; d.Property != "color" || d.Value != "RED" {
		t.Errorf("second declaration = %+v", d)
	}
}

func TestParser_SelectorList(t *testing.T) {
	sheet := mustParse(t, `h1 , .title > span, a:not(.x, .y) { margin: 0 }`)

	rules := allRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	want := []string{"h1", ".title>span", "a:not(.x,.y)"}
	got := rules[0].Selectors
	if len(got) != len(want) {
		t.Fatalf("selectors = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("selector[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParser_Important(t *testing.T) {
	sheet := mustParse(t, `a { color: red !important; margin: 0 auto!important; padding: 1px }`)

	decls := allRules(sheet)[0].Declarations
	if !decls[0].Important || decls[0].Value != "red" {
		t.Errorf("color = %+v, want important red", decls[0])
	}
	if !decls[1].Important || decls[1].Value != "0 auto" {
		t.Errorf("margin = %+v, want important '0 auto'", decls[1])
	}
	if decls[2].Important {
		t.Errorf("padding must not be important")
	}
}

func TestParser_CustomProperty(t *testing.T) {
	sheet := mustParse(t, `:root { --Main-Color: #06c; }`)

	d := allRules(sheet)[0].Declarations[0]
	if d.Property != "--Main-Color" {
		t.Errorf("property = %q, custom property case must be kept", d.Property)
	}
	if d.Value != "#06c" {
		t.Errorf("value = %q, want %q", d.Value, "#06c")
	}
	if !d.IsCustom() {
		t.Error("expected custom property")
	}
}

func TestParser_AtRules(t *testing.T) {
	input := `@charset "utf-8";
@import url("base.css");
@media screen and (max-width: 600px) {
  .a { color: red }
  @media print { .b { color: blue } }
}
@font-face { font-family: "Foo"; src: url(foo.woff) }
@keyframes spin { from { transform: rotate(0deg) } to { transform: rotate(360deg) } }
@-webkit-keyframes spin { 50% { opacity: .5 } }
@counter-style thumbs { system: cyclic; symbols: "x"; }
`
	sheet := mustParse(t, input)

	if len(sheet.Items) != 7 {
		t.Fatalf("expected 7 top level items, got %d", len(sheet.Items))
	}

	charset := sheet.Items[0].AtRule
	if charset == nil || charset.Name != "charset" || charset.Block {
		t.Errorf("unexpected @charset: %+v", charset)
	}

	media := sheet.Items[2].AtRule
	if media == nil || media.Name != "media" {
		t.Fatalf("expected @media, got %+v", sheet.Items[2])
	}
	if len(media.Items) != 2 {
		t.Fatalf("expected 2 items in @media, got %d", len(media.Items))
	}
	if media.Items[0].Rule == nil || media.Items[0].Rule.Selector() != ".a" {
		t.Errorf("unexpected first @media item: %+v", media.Items[0])
	}
	nested := media.Items[1].AtRule
	if nested == nil || nested.Name != "media" || len(nested.Items) != 1 {
		t.Errorf("unexpected nested @media: %+v", nested)
	}

	ff := sheet.Items[3].AtRule
	if ff == nil || len(ff.Declarations) != 2 || ff.Declarations[0].Property != "font-family" {
		t.Errorf("unexpected @font-face: %+v", ff)
	}

	kf := sheet.Items[4].AtRule
	if kf == nil || len(kf.Items) != 2 {
		t.Errorf("unexpected @keyframes: %+v", kf)
	}
	wkf := sheet.Items[5].AtRule
	if wkf == nil || wkf.BaseName() != "keyframes" || len(wkf.Items) != 1 {
		t.Errorf("unexpected @-webkit-keyframes: %+v", wkf)
	}

	cs := sheet.Items[6].AtRule
	if cs == nil || !cs.Block || !strings.Contains(cs.Raw, "cyclic") {
		t.Errorf("unexpected @counter-style: %+v", cs)
	}
}

func TestParser_TopLevelComment(t *testing.T) {
	sheet := mustParse(t, "/* header */\na { color: red }")

	if len(sheet.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(sheet.Items))
	}
	if c := sheet.Items[0].Comment; c == nil || *c != "/* header */" {
		t.Errorf("unexpected comment: %v", sheet.Items[0])
	}
}

func TestParser_Empty(t *testing.T) {
	sheet := mustParse(t, "")
	if len(sheet.Items) != 0 {
		t.Errorf("expected no items, got %d", len(sheet.Items))
	}
}

func TestParser_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"stray closing brace", `a { color: red; } }`},
		{"missing block", `a { color: red } .b`},
		{"missing colon", `a { color red; }`},
		{"unclosed rule", `a { color: red`},
		{"unclosed nested rule", `.card { padding: 0; .title { color: red }`},
		{"unclosed media", `@media print { a { color: red }`},
		{"unclosed font-face", `@font-face { font-family: F`},
		{"media inside rule", `.card { @media print { color: red } }`},
	}

	p := css.NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := p.Parse([]byte(tt.input), "broken.css")
			if err == nil {
				t.Fatalf("expected error, got stylesheet %q", sheet.String())
			}
			var se *css.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *css.SyntaxError, got %T", err)
			}
			if se.Source != "broken.css" {
				t.Errorf("Source = %q, want broken.css", se.Source)
			}
			if !strings.HasPrefix(err.Error(), "broken.css:") {
				t.Errorf("error message %q must start with source name", err.Error())
			}
		})
	}
}

func TestParser_NestedRules(t *testing.T) {
	sheet := mustParse(t, `.card { padding: 0; .title { color: red } .icon { margin: 0; @apply --x; } }`)

	rules := allRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 top level rule, got %d", len(rules))
	}
	card := rules[0]
	if len(card.Declarations) != 1 || card.Declarations[0].Property != "padding" {
		t.Errorf("nested declarations leaked into outer rule: %+v", card.Declarations)
	}
	if len(card.Items) != 2 {
		t.Fatalf("expected 2 nested items, got %d", len(card.Items))
	}
	title := card.Items[0].Rule
	if title == nil || title.Selector() != ".title" || len(title.Declarations) != 1 || title.Declarations[0].Value != "red" {
		t.Errorf("unexpected nested rule: %+v", card.Items[0])
	}
	icon := card.Items[1].Rule
	if icon == nil || len(icon.Items) != 1 || icon.Items[0].AtRule == nil || icon.Items[0].AtRule.Name != "apply" {
		t.Errorf("nested statement @-rule is lost: %+v", card.Items[1])
	}

	want := `.card {
  padding: 0;

  .title {
    color: red;
  }

  .icon {
    margin: 0;

    @apply --x;
  }
}
`
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
	if again := mustParse(t, want).String(); again != want {
		t.Errorf("nested output is not stable:\n%s", again)
	}
}

func TestParser_BlockCommentsDropped(t *testing.T) {
	// only top level comments are reported by the grammar
	sheet := mustParse(t, "/* top */ a { color: red; /* inner */ } @media print { /* media */ b { x: 1 } }")

	got := sheet.String()
	if !strings.Contains(got, "/* top */") {
		t.Errorf("top level comment is lost:\n%s", got)
	}
	if strings.Contains(got, "inner") || strings.Contains(got, "media */") {
		t.Errorf("nested comments are not expected:\n%s", got)
	}
	if !strings.Contains(got, "color: red;") || !strings.Contains(got, "x: 1;") {
		t.Errorf("declarations around comments are lost:\n%s", got)
	}
}

func TestStylesheet_String(t *testing.T) {
	sheet := mustParse(t, `@import "x.css";a,b{color:red;margin:0!important}@media print{a{color:blue}}`)

	want := `@import "x.css";

a, b {
  color: red;
  margin: 0 !important;
}

@media print {
  a {
    color: blue;
  }
}
`
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestStylesheet_RoundTrip(t *testing.T) {
	input := `.a .b:hover, p::before { content: "x"; color: #fff }
@media (min-width: 10px) { .c { display: none } }`

	first := mustParse(t, input).String()
	second := mustParse(t, first).String()
	if first != second {
		t.Errorf("serialized output is not stable:\n%s\n---\n%s", first, second)
	}
}

func TestStylesheet_EachRule(t *testing.T) {
	sheet := mustParse(t, `a{x:1} @media print { b{x:1} @supports (display:grid) { c{x:1} } } @keyframes k { from{x:1} }`)

	var all, media []string
	collect := func(dst *[]string) func(*css.Rule) error {
		return func(r *css.Rule) error {
			*dst = append(*dst, r.Selector())
			return nil
		}
	}

	if err := sheet.EachRule(nil, collect(&all)); err != nil {
		t.Fatal(err)
	}
	if strings.Join(all, ",") != "a" {
		t.Errorf("top level rules = %q, want [a]", all)
	}

	onlyMedia := func(at *css.AtRule) bool { return at.Name == "media" }
	if err := sheet.EachRule(onlyMedia, collect(&media)); err != nil {
		t.Fatal(err)
	}
	if strings.Join(media, ",") != "a,b" {
		t.Errorf("rules with @media = %q, want [a b]", media)
	}

	stop := errors.New("stop")
	count := 0
	err := sheet.EachRule(func(*css.AtRule) bool { return true }, func(*css.Rule) error {
		count++
		return stop
	})
	if !errors.Is(err, stop) || count != 1 {
		t.Errorf("EachRule must stop on first error, got err=%v count=%d", err, count)
	}
}

func TestStylesheet_EachBlock(t *testing.T) {
	sheet := mustParse(t, `a{x:1} @media print { b{x:1;y:2} } @font-face { font-family: F }`)

	total := 0
	sheet.EachBlock(func(decls []css.Declaration) []css.Declaration {
		total += len(decls)
		return append(decls, css.Declaration{Property: "z", Value: "0"})
	})
	if total != 4 {
		t.Errorf("visited %d declarations, want 4", total)
	}
	if n := len(allRules(sheet)[0].Declarations); n != 2 {
		t.Errorf("returned list must replace original, got %d declarations", n)
	}
}

func TestStylesheet_Filter(t *testing.T) {
	sheet := mustParse(t, "/* c */ a{} b{x:1} @media print { c{} d{x:1} }")

	sheet.Filter(func(item css.Item) bool {
		return item.Comment == nil && (item.Rule == nil || len(item.Rule.Declarations) > 0)
	})
	want := "b {\n  x: 1;\n}\n\n@media print {\n  d {\n    x: 1;\n  }\n}\n"
	if got := sheet.String(); got != want {
		t.Errorf("String() after Filter =\n%s\nwant\n%s", got, want)
	}
}

func TestUnprefixed(t *testing.T) {
	tests := []struct {
		in, base, prefix string
	}{
		{"-webkit-user-select", "user-select", "-webkit-"},
		{"-ms-hyphens", "hyphens", "-ms-"},
		{"user-select", "user-select", ""},
		{"--custom-prop", "--custom-prop", ""},
	}
	for _, tt := range tests {
		base, prefix := css.Unprefixed(tt.in)
		if base != tt.base || prefix != tt.prefix {
			t.Errorf("Unprefixed(%q) = (%q, %q), want (%q, %q)", tt.in, base, prefix, tt.base, tt.prefix)
		}
	}
}
