// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellargs

import (
	"reflect"
	"testing"

	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \t\n ", []string{}},
		{"two words", "a b", []string{"a", "b"}},
		{"repeated whitespace", "  a \t  b\n", []string{"a", "b"}},
		{"single quoted region", "'a b' c", []string{"a b", "c"}},
		{"escaped double quote", `"a\"b"`, []string{`a"b`}},
		{"escaped backslash in double quotes", `"a\\b"`, []string{`a\b`}},
		{"other escape in double quotes kept", `"a\nb"`, []string{`a\nb`}},
		{"backslash in single quotes literal", `'a\'`, []string{`a\`}},
		{"double quote inside single quotes", `'say "hi"'`, []string{`say "hi"`}},
		{"single quote inside double quotes", `"it's"`, []string{"it's"}},
		{"unquoted escaped space", `a\ b c`, []string{"a b", "c"}},
		{"unquoted escaped quote", `\"x`, []string{`"x`}},
		{"adjacent segments join", `a'b c'"d e"f`, []string{"ab cd ef"}},
		{"empty single quoted", "'' x", []string{"", "x"}},
		{"empty double quoted", `a ""`, []string{"a", ""}},
		{
			"am style command",
			`start -n com.example/.Main --es extra "hello world"`,
			[]string{"start", "-n", "com.example/.Main", "--es", "extra", "hello world"},
		},
		{"unicode", "héllo 'wörld ✓'", []string{"héllo", "wörld ✓"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Tokenize(test.input)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", test.input, err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestTokenizeMalformed(t *testing.T) {
	inputs := []string{
		"'unterminated",
		`"unterminated`,
		`"ends with escaped quote\"`,
		`trailing\`,
		`a 'b' "c`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tokens, err := Tokenize(input)
			if err == nil {
				t.Fatalf("Tokenize(%q) = %q, want error", input, tokens)
			}
			if !socketerr.Is(err, socketerr.KindMalformedInput) {
				t.Errorf("Tokenize(%q) error kind = %q, want %q", input, socketerr.KindOf(err), socketerr.KindMalformedInput)
			}
			if tokens != nil {
				t.Errorf("Tokenize(%q) returned partial tokens %q", input, tokens)
			}
		})
	}
}

func TestJoinRoundTrip(t *testing.T) {
	cases := [][]string{
		{},
		{"echo", "hi"},
		{"a b", "c"},
		{"it's", `say "hi"`, `back\slash`},
		{"", "empty", ""},
		{"tab\there", "new\nline"},
		{"$HOME", "*.go", "a;b", "~user"},
		{"'''"},
	}
	for _, args := range cases {
		joined := Join(args)
		got, err := Tokenize(joined)
		if err != nil {
			t.Errorf("Tokenize(Join(%q)) error: %v (joined %q)", args, err, joined)
			continue
		}
		if !reflect.DeepEqual(got, append([]string{}, args...)) {
			t.Errorf("Tokenize(Join(%q)) = %q (joined %q)", args, got, joined)
		}
	}
}

func TestQuoteLeavesSafeArgumentsAlone(t *testing.T) {
	for _, arg := range []string{"echo", "-n", "com.example/.Main", "key=value", "a,b:c@d%e+f"} {
		if got := Quote(arg); got != arg {
			t.Errorf("Quote(%q) = %q, want unchanged", arg, got)
		}
	}
}
