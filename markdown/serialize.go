package markdown

import (
	"fmt"
	"strings"
)

// Serialize renders a block back to the canonical markdown the parser
// would have produced it from. Reconciliation depends on this being an
// exact inverse for every serializable variant; Chart has no markdown
// form and serializes to the empty string, and Details children are
// not serialized.
func Serialize(b Block) string {
	switch v := b.(type) {
	case Text:
		return v.Text

	case Heading:
		return strings.Repeat("#", v.Level) + " " + v.Text

	case Code:
		return "```" + v.Language + "\n" + v.Code + "\n```"

	case List:
		lines := make([]string, len(v.Items))
		for i, item := range v.Items {
			if v.Ordered {
				lines[i] = fmt.Sprintf("%d. %s", i+1, item)
			} else {
				lines[i] = "- " + item
			}
		}
		return strings.Join(lines, "\n")

	case Blockquote:
		lines := strings.Split(v.Text, "\n")
		for i, l := range lines {
			lines[i] = "> " + l
		}
		return strings.Join(lines, "\n")

	case Table:
		var sb strings.Builder
		writeRow(&sb, v.Headers)
		sb.WriteString("\n|")
		for range v.Headers {
			sb.WriteString("---|")
		}
		for _, row := range v.Rows {
			sb.WriteString("\n")
			writeRow(&sb, row)
		}
		return sb.String()

	case Rule:
		return "---"

	case Math:
		if v.Inline {
			return "$" + v.Text + "$"
		}
		return "$$\n" + v.Text + "\n$$"

	case TaskList:
		lines := make([]string, len(v.Items))
		for i, item := range v.Items {
			box := "[ ]"
			if item.Checked {
				box = "[x]"
			}
			lines[i] = "- " + box + " " + item.Text
		}
		return strings.Join(lines, "\n")

	case Callout:
		lines := []string{"> [!" + v.Kind + "]"}
		for _, l := range strings.Split(v.Text, "\n") {
			lines = append(lines, "> "+l)
		}
		return strings.Join(lines, "\n")

	case Image:
		return fmt.Sprintf("![%s](%s)", v.Alt, v.URL)

	case Details:
		return "<details>\n<summary>" + v.Text + "</summary>\n</details>"

	case Chart:
		return ""
	}
	return ""
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(c)
		sb.WriteString(" |")
	}
}
