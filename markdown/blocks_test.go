package markdown

import (
	"reflect"
	"testing"
)

func TestDecodeBlock(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Block
	}{
		{
			name: "heading",
			raw:  `{"type": "heading", "level": 2, "text": "Title"}`,
			want: Heading{Level: 2, Text: "Title"},
		},
		{
			name: "code",
			raw:  `{"type": "code", "language": "go", "code": "x := 1"}`,
			want: Code{Language: "go", Code: "x := 1"},
		},
		{
			name: "ordered list",
			raw:  `{"type": "list", "items": ["a", "b"], "ordered": true}`,
			want: List{Items: []string{"a", "b"}, Ordered: true},
		},
		{
			name: "table",
			raw:  `{"type": "table", "headers": ["h"], "rows": [["r"]]}`,
			want: Table{Headers: []string{"h"}, Rows: [][]string{{"r"}}},
		},
		{
			name: "rule",
			raw:  `{"type": "rule"}`,
			want: Rule{},
		},
		{
			name: "task list",
			raw:  `{"type": "task_list", "items": [{"text": "a", "checked": true}]}`,
			want: TaskList{Items: []TaskItem{{Text: "a", Checked: true}}},
		},
		{
			name: "callout",
			raw:  `{"type": "callout", "kind": "TIP", "text": "hint"}`,
			want: Callout{Kind: "TIP", Text: "hint"},
		},
		{
			name: "chart keeps raw data",
			raw:  `{"type": "chart", "chart_type": "line", "title": "T", "data": [1, 2]}`,
			want: Chart{ChartType: "line", Title: "T", Data: []byte(`[1, 2]`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBlock([]byte(tt.raw))
			if err != nil {
				t.Fatalf("DecodeBlock: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeBlockDetailsRecursion(t *testing.T) {
	raw := `{"type": "details", "text": "More", "children": [
		{"type": "text", "text": "inner"},
		{"type": "heading", "level": 1, "text": "H"}
	]}`

	got, err := DecodeBlock([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	d, ok := got.(Details)
	if !ok {
		t.Fatalf("expected Details, got %T", got)
	}
	if d.Text != "More" || len(d.Children) != 2 {
		t.Fatalf("unexpected details: %#v", d)
	}
	if d.Children[0] != (Text{Text: "inner"}) {
		t.Errorf("first child = %#v", d.Children[0])
	}
	if d.Children[1] != (Heading{Level: 1, Text: "H"}) {
		t.Errorf("second child = %#v", d.Children[1])
	}
}

func TestDecodeBlockUnknownType(t *testing.T) {
	if _, err := DecodeBlock([]byte(`{"type": "hologram"}`)); err == nil {
		t.Error("expected error for unknown block type")
	}
}
