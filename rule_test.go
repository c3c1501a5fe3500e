package typesync

import (
	"reflect"
	"testing"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Segment
	}{
		{
			"literal only",
			"/users",
			[]Segment{{Literal: "/users"}},
		},
		{
			"single typed arg",
			"/users/<int:id>",
			[]Segment{
				{Literal: "/users/"},
				{Arg: "id", Converter: "int"},
			},
		},
		{
			"default converter",
			"/posts/<slug>",
			[]Segment{
				{Literal: "/posts/"},
				{Arg: "slug", Converter: "str"},
			},
		},
		{
			"multiple args",
			"/users/<int:id>/posts/<slug>",
			[]Segment{
				{Literal: "/users/"},
				{Arg: "id", Converter: "int"},
				{Literal: "/posts/"},
				{Arg: "slug", Converter: "str"},
			},
		},
		{
			"trailing literal",
			"/files/<path:name>/raw",
			[]Segment{
				{Literal: "/files/"},
				{Arg: "name", Converter: "path"},
				{Literal: "/raw"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule(tt.raw)
			if err != nil {
				t.Fatalf("ParseRule(%q): %v", tt.raw, err)
			}
			if rule.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", rule.Raw, tt.raw)
			}
			if !reflect.DeepEqual(rule.Trace, tt.want) {
				t.Errorf("Trace = %v, want %v", rule.Trace, tt.want)
			}
		})
	}
}

func TestParseRuleErrors(t *testing.T) {
	tests := []string{
		"/users/<int:id",
		"/users/int:id>",
		"/users/<int:id>/posts/<int:id>",
		"/users/<>",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			if _, err := ParseRule(raw); err == nil {
				t.Errorf("ParseRule(%q) should fail", raw)
			}
		})
	}
}

func TestRuleArguments(t *testing.T) {
	rule, err := ParseRule("/a/<int:x>/b/<y>/<float:z>")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"x", "y", "z"}
	if got := rule.Arguments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Arguments() = %v, want %v", got, want)
	}

	if conv, ok := rule.ConverterFor("y"); !ok || conv != "str" {
		t.Errorf("ConverterFor(y) = %q, %v", conv, ok)
	}
	if _, ok := rule.ConverterFor("missing"); ok {
		t.Error("ConverterFor(missing) should report not found")
	}
}

func TestRuleTemplate(t *testing.T) {
	rule, err := ParseRule("/users/<int:id>/posts/<slug>")
	if err != nil {
		t.Fatal(err)
	}
	if got := rule.Template(); got != "/users/<id>/posts/<slug>" {
		t.Errorf("Template() = %q", got)
	}
}

func TestRulePattern(t *testing.T) {
	converters := builtinConverters()

	tests := []struct {
		raw      string
		path     string
		match    bool
		captures []string
	}{
		{"/users/<int:id>", "/users/42", true, []string{"42"}},
		{"/users/<int:id>", "/users/-7", true, []string{"-7"}},
		{"/users/<int:id>", "/users/abc", false, nil},
		{"/users/<int:id>", "/users/42/extra", false, nil},
		{"/files/<path:name>", "/files/a/b/c.txt", true, []string{"a/b/c.txt"}},
		{"/x/<float:v>", "/x/3.25", true, []string{"3.25"}},
		{
			"/items/<uuid:id>",
			"/items/8e64cfa0-2f6f-4f54-9a4c-9f0c5b0c6a1e",
			true,
			[]string{"8e64cfa0-2f6f-4f54-9a4c-9f0c5b0c6a1e"},
		},
		{"/items/<uuid:id>", "/items/not-a-uuid", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw+" "+tt.path, func(t *testing.T) {
			rule, err := ParseRule(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			re, args, err := rule.pattern(converters)
			if err != nil {
				t.Fatal(err)
			}
			m := re.FindStringSubmatch(tt.path)
			if (m != nil) != tt.match {
				t.Fatalf("match = %v, want %v", m != nil, tt.match)
			}
			if m == nil {
				return
			}
			if len(args) != len(tt.captures) {
				t.Fatalf("captured %d args, want %d", len(args), len(tt.captures))
			}
			if !reflect.DeepEqual(m[1:], tt.captures) {
				t.Errorf("captures = %v, want %v", m[1:], tt.captures)
			}
		})
	}
}

func TestRulePatternUnknownConverter(t *testing.T) {
	rule, err := ParseRule("/x/<bogus:v>")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := rule.pattern(builtinConverters()); err == nil {
		t.Error("pattern with an unregistered converter should fail")
	}
}
