package markdown

import (
	"reflect"
	"testing"
)

func TestParseBasicBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Block
	}{
		{
			name:  "heading then paragraph",
			input: "## Title\n\nSome text",
			want:  []Block{Heading{Level: 2, Text: "Title"}, Text{Text: "Some text"}},
		},
		{
			name:  "all heading levels",
			input: "# a\n###### b",
			want:  []Block{Heading{Level: 1, Text: "a"}, Heading{Level: 6, Text: "b"}},
		},
		{
			name:  "seven hashes is a paragraph",
			input: "####### too deep",
			want:  []Block{Text{Text: "####### too deep"}},
		},
		{
			name:  "horizontal rules",
			input: "---\n***\n___",
			want:  []Block{Rule{}, Rule{}, Rule{}},
		},
		{
			name:  "two dashes is a paragraph",
			input: "--",
			want:  []Block{Text{Text: "--"}},
		},
		{
			name:  "blockquote strips one marker",
			input: "> line one\n>line two",
			want:  []Block{Blockquote{Text: "line one\nline two"}},
		},
		{
			name:  "callout",
			input: "> [!WARNING]\n> watch out",
			want:  []Block{Callout{Kind: "WARNING", Text: "watch out"}},
		},
		{
			name:  "ordered list with both delimiters",
			input: "1. first\n2) second",
			want:  []Block{List{Items: []string{"first", "second"}, Ordered: true}},
		},
		{
			name:  "unordered list mixed markers",
			input: "- a\n* b\n+ c",
			want:  []Block{List{Items: []string{"a", "b", "c"}}},
		},
		{
			name:  "task list",
			input: "- [x] done\n- [ ] pending",
			want: []Block{TaskList{Items: []TaskItem{
				{Text: "done", Checked: true},
				{Text: "pending", Checked: false},
			}}},
		},
		{
			name:  "mixed checkbox and plain items stay a list",
			input: "- [x] done\n- plain",
			want:  []Block{List{Items: []string{"[x] done", "plain"}}},
		},
		{
			name:  "image line",
			input: "![diagram](https://example.com/d.png)",
			want:  []Block{Image{Alt: "diagram", URL: "https://example.com/d.png"}},
		},
		{
			name:  "inline math",
			input: "$e = mc^2$",
			want:  []Block{Math{Text: "e = mc^2", Inline: true}},
		},
		{
			name:  "display math",
			input: "$$\n\\int_0^1 x dx\n$$",
			want:  []Block{Math{Text: "\\int_0^1 x dx"}},
		},
		{
			name:  "paragraph stops at block marker",
			input: "one\ntwo\n# Head",
			want:  []Block{Text{Text: "one\ntwo"}, Heading{Level: 1, Text: "Head"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "only blank lines",
			input: "\n\n\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFences(t *testing.T) {
	t.Run("terminated fence", func(t *testing.T) {
		got := Parse("```go\nfmt.Println(1)\n```\nafter")
		want := []Block{
			Code{Language: "go", Code: "fmt.Println(1)"},
			Text{Text: "after"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("unterminated fence consumes remainder", func(t *testing.T) {
		got := Parse("```python\nprint(1)\n# not a heading\n- not a list")
		want := []Block{
			Code{Language: "python", Code: "print(1)\n# not a heading\n- not a list"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("tilde fence", func(t *testing.T) {
		got := Parse("~~~sh\nls\n~~~")
		want := []Block{Code{Language: "sh", Code: "ls"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("backtick fence not closed by tildes", func(t *testing.T) {
		got := Parse("```\ncontent\n~~~\nmore")
		want := []Block{Code{Code: "content\n~~~\nmore"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})
}

func TestParseTables(t *testing.T) {
	t.Run("header separator and rows", func(t *testing.T) {
		got := Parse("| Name | Qty |\n|---|---|\n| apples | 3 |\n| pears | 7 |")
		want := []Block{Table{
			Headers: []string{"Name", "Qty"},
			Rows:    [][]string{{"apples", "3"}, {"pears", "7"}},
		}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("single pipe line is dropped", func(t *testing.T) {
		got := Parse("| lonely |\nafter")
		want := []Block{Text{Text: "after"}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})
}

func TestParseDeterminism(t *testing.T) {
	input := "# H\n\ntext\n\n```go\ncode\n```\n\n- a\n- b\n\n| x |\n|---|\n| 1 |\n\n> quote\n"
	first := Parse(input)
	for i := 0; i < 10; i++ {
		if got := Parse(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d diverged: %#v vs %#v", i, got, first)
		}
	}
}
