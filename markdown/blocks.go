package markdown

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// BlockType discriminates the block variants
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockHeading    BlockType = "heading"
	BlockCode       BlockType = "code"
	BlockList       BlockType = "list"
	BlockBlockquote BlockType = "blockquote"
	BlockTable      BlockType = "table"
	BlockRule       BlockType = "rule"
	BlockMath       BlockType = "math"
	BlockTaskList   BlockType = "task_list"
	BlockCallout    BlockType = "callout"
	BlockImage      BlockType = "image"
	BlockDetails    BlockType = "details"
	BlockChart      BlockType = "chart"
)

// Block is one typed structural unit of a message. Blocks are immutable
// once constructed.
type Block interface {
	Type() BlockType
}

// Text is a plain paragraph
type Text struct {
	Text string `json:"text"`
}

func (Text) Type() BlockType { return BlockText }

// Heading is an ATX heading, level 1 through 6
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func (Heading) Type() BlockType { return BlockHeading }

// Code is a fenced code block
type Code struct {
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

func (Code) Type() BlockType { return BlockCode }

// List is an ordered or unordered list
type List struct {
	Items   []string `json:"items"`
	Ordered bool     `json:"ordered"`
}

func (List) Type() BlockType { return BlockList }

// Blockquote is a quoted passage, lines joined by newlines
type Blockquote struct {
	Text string `json:"text"`
}

func (Blockquote) Type() BlockType { return BlockBlockquote }

// Table is a pipe table
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func (Table) Type() BlockType { return BlockTable }

// Rule is a horizontal rule
type Rule struct{}

func (Rule) Type() BlockType { return BlockRule }

// Math is a TeX expression, inline or display
type Math struct {
	Text   string `json:"text"`
	Inline bool   `json:"inline"`
}

func (Math) Type() BlockType { return BlockMath }

// TaskItem is one checklist entry
type TaskItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// TaskList is a checklist
type TaskList struct {
	Items []TaskItem `json:"items"`
}

func (TaskList) Type() BlockType { return BlockTaskList }

// Callout is an admonition-style blockquote, e.g. > [!NOTE]
type Callout struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func (Callout) Type() BlockType { return BlockCallout }

// Image is a standalone image line
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

func (Image) Type() BlockType { return BlockImage }

// Details is a collapsible section with nested child blocks
type Details struct {
	Text     string  `json:"text"`
	Children []Block `json:"children,omitempty"`
}

func (Details) Type() BlockType { return BlockDetails }

// Chart is backend-rendered chart data. It has no markdown form.
type Chart struct {
	ChartType string          `json:"chart_type"`
	Title     string          `json:"title,omitempty"`
	Data      json.RawMessage `json:"data"`
}

func (Chart) Type() BlockType { return BlockChart }

// DecodeBlock builds a Block from its wire JSON. The variant is chosen
// by the "type" field.
func DecodeBlock(raw json.RawMessage) (Block, error) {
	typ := BlockType(gjson.GetBytes(raw, "type").String())

	var target Block
	switch typ {
	case BlockText:
		target = &Text{}
	case BlockHeading:
		target = &Heading{}
	case BlockCode:
		target = &Code{}
	case BlockList:
		target = &List{}
	case BlockBlockquote:
		target = &Blockquote{}
	case BlockTable:
		target = &Table{}
	case BlockRule:
		return Rule{}, nil
	case BlockMath:
		target = &Math{}
	case BlockTaskList:
		target = &TaskList{}
	case BlockCallout:
		target = &Callout{}
	case BlockImage:
		target = &Image{}
	case BlockDetails:
		var v Details
		if err := v.decode(raw); err != nil {
			return nil, fmt.Errorf("decode details block: %w", err)
		}
		return v, nil
	case BlockChart:
		target = &Chart{}
	default:
		return nil, fmt.Errorf("unknown block type %q", typ)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s block: %w", typ, err)
	}
	return deref(target), nil
}

// deref converts the pointer decode target back to a value so blocks
// compare with == where possible.
func deref(b Block) Block {
	switch v := b.(type) {
	case *Text:
		return *v
	case *Heading:
		return *v
	case *Code:
		return *v
	case *List:
		return *v
	case *Blockquote:
		return *v
	case *Table:
		return *v
	case *Math:
		return *v
	case *TaskList:
		return *v
	case *Callout:
		return *v
	case *Image:
		return *v
	case *Chart:
		return *v
	}
	return b
}

// decode handles the recursive children list
func (d *Details) decode(raw json.RawMessage) error {
	var head struct {
		Text     string            `json:"text"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return err
	}
	d.Text = head.Text
	for _, c := range head.Children {
		child, err := DecodeBlock(c)
		if err != nil {
			return err
		}
		d.Children = append(d.Children, child)
	}
	return nil
}
