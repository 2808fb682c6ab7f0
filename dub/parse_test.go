package dub

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	type test struct {
		input string
		want  Command
	}
	tests := []test{
		{
			input: "reroll '1",
			want: Command{
				Name: Identifier("reroll"),
				Args: []Node{
					MatchExpr{matchers: []matcher{listMatch{1}}},
				},
			},
		},
		{
			input: "reroll '*",
			want: Command{
				Name: Identifier("reroll"),
				Args: []Node{
					MatchExpr{matchers: []matcher{matchAll}},
				},
			},
		},
		{
			input: "reroll '1:4,9",
			want: Command{
				Name: Identifier("reroll"),
				Args: []Node{
					MatchExpr{matchers: []matcher{rangeMatch{start: 1, end: 4}, listMatch{9}}},
				},
			},
		},
		{
			input: "set level -3.5",
			want: Command{
				Name: Identifier("set"),
				Args: []Node{Identifier("level"), Float(-3.5)},
			},
		},
		{
			input: "tempo 96",
			want: Command{
				Name: Identifier("tempo"),
				Args: []Node{Int(96)},
			},
		},
		{
			input: `save "a/file.wav"`,
			want: Command{
				Name: Identifier("save"),
				Args: []Node{String("a/file.wav")},
			},
		},
		{
			input: `load ""`,
			want: Command{
				Name: Identifier("load"),
				Args: []Node{String("")},
			},
		},
		{
			input: "play",
			want:  Command{Name: Identifier("play")},
		},
	}
	for _, test := range tests {
		t.Log(test.input)
		got, err := Parse(test.input)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("\nwant: %+v\ngot:  %+v", test.want, got)
		}
	}
}

func TestParseAll(t *testing.T) {
	cmds, err := ParseAll("new; tempo 140 ;play;")
	if err != nil {
		t.Fatal(err)
	}
	want := []Command{
		{Name: "new"},
		{Name: "tempo", Args: []Node{Int(140)}},
		{Name: "play"},
	}
	if !reflect.DeepEqual(want, cmds) {
		t.Errorf("\nwant: %+v\ngot:  %+v", want, cmds)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"1 2",
		"reroll '",
		"reroll '1:",
		"reroll '1:x",
		"reroll ',",
		"a; b",
	} {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected error for input: %q", input)
		}
	}
}
