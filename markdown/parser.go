package markdown

import (
	"regexp"
	"strings"
)

var (
	ruleRe        = regexp.MustCompile(`^(\*{3,}|-{3,}|_{3,})$`)
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	fenceRe       = regexp.MustCompile("^(```|~~~)\\s*(\\S*)\\s*$")
	mathFenceRe   = regexp.MustCompile(`^\$\$\s*$`)
	inlineMathRe  = regexp.MustCompile(`^\$([^$]+)\$$`)
	orderedRe     = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
	unorderedRe   = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	taskItemRe    = regexp.MustCompile(`^\[([ xX])\]\s+(.*)$`)
	calloutRe     = regexp.MustCompile(`^\[!(\w+)\]\s*$`)
	imageLineRe   = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)$`)
	fenceCloserRe = regexp.MustCompile("^(```|~~~)\\s*$")
)

// Parse converts markdown text to an ordered block sequence. It is a
// pure function: a single forward line scan with greedy block capture,
// so identical input always yields identical output.
func Parse(text string) []Block {
	lines := strings.Split(text, "\n")
	var blocks []Block

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case ruleRe.MatchString(trimmed):
			blocks = append(blocks, Rule{})
			i++

		case headingRe.MatchString(trimmed):
			m := headingRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, Heading{Level: len(m[1]), Text: m[2]})
			i++

		case fenceRe.MatchString(trimmed):
			var b Block
			b, i = parseFence(lines, i)
			blocks = append(blocks, b)

		case mathFenceRe.MatchString(trimmed):
			var b Block
			b, i = parseMathFence(lines, i)
			blocks = append(blocks, b)

		case inlineMathRe.MatchString(trimmed):
			m := inlineMathRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, Math{Text: strings.TrimSpace(m[1]), Inline: true})
			i++

		case imageLineRe.MatchString(trimmed):
			m := imageLineRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, Image{Alt: m[1], URL: m[2]})
			i++

		case strings.HasPrefix(trimmed, ">"):
			var b Block
			b, i = parseQuote(lines, i)
			blocks = append(blocks, b)

		case orderedRe.MatchString(trimmed):
			var items []string
			for i < len(lines) {
				m := orderedRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
				if m == nil {
					break
				}
				items = append(items, m[1])
				i++
			}
			blocks = append(blocks, List{Items: items, Ordered: true})

		case unorderedRe.MatchString(trimmed):
			var b Block
			b, i = parseUnordered(lines, i)
			blocks = append(blocks, b)

		case isTableLine(trimmed):
			var rows []string
			for i < len(lines) && isTableLine(strings.TrimSpace(lines[i])) {
				rows = append(rows, strings.TrimSpace(lines[i]))
				i++
			}
			// A table needs at least a header and a separator row.
			// Anything shorter is dropped.
			if len(rows) >= 2 {
				blocks = append(blocks, buildTable(rows))
			}

		default:
			var para []string
			for i < len(lines) {
				l := strings.TrimSpace(lines[i])
				if l == "" || isBlockStart(l) {
					break
				}
				para = append(para, l)
				i++
			}
			blocks = append(blocks, Text{Text: strings.Join(para, "\n")})
		}
	}

	return blocks
}

// isBlockStart reports whether a trimmed line opens any non-paragraph block
func isBlockStart(l string) bool {
	return ruleRe.MatchString(l) ||
		headingRe.MatchString(l) ||
		fenceRe.MatchString(l) ||
		mathFenceRe.MatchString(l) ||
		inlineMathRe.MatchString(l) ||
		imageLineRe.MatchString(l) ||
		strings.HasPrefix(l, ">") ||
		orderedRe.MatchString(l) ||
		unorderedRe.MatchString(l) ||
		isTableLine(l)
}

func isTableLine(l string) bool {
	return strings.HasPrefix(l, "|") && strings.Count(l, "|") >= 2
}

// parseFence consumes a fenced code block starting at lines[start].
// An unterminated fence consumes the rest of the input so an
// in-progress block still renders as code.
func parseFence(lines []string, start int) (Block, int) {
	m := fenceRe.FindStringSubmatch(strings.TrimSpace(lines[start]))
	marker, lang := m[1], m[2]

	var body []string
	i := start + 1
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		if fenceCloserRe.MatchString(t) && strings.HasPrefix(t, marker) {
			i++
			return Code{Language: lang, Code: strings.Join(body, "\n")}, i
		}
		body = append(body, lines[i])
		i++
	}
	return Code{Language: lang, Code: strings.Join(body, "\n")}, i
}

// parseMathFence consumes a $$ display-math block, with the same
// unterminated tolerance as code fences.
func parseMathFence(lines []string, start int) (Block, int) {
	var body []string
	i := start + 1
	for i < len(lines) {
		if mathFenceRe.MatchString(strings.TrimSpace(lines[i])) {
			i++
			return Math{Text: strings.Join(body, "\n")}, i
		}
		body = append(body, lines[i])
		i++
	}
	return Math{Text: strings.Join(body, "\n")}, i
}

// parseQuote consumes contiguous > lines, yielding a Callout when the
// first line carries an [!KIND] marker and a Blockquote otherwise.
func parseQuote(lines []string, start int) (Block, int) {
	var body []string
	i := start
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(t, ">") {
			break
		}
		t = strings.TrimPrefix(t, ">")
		t = strings.TrimPrefix(t, " ")
		body = append(body, t)
		i++
	}

	if m := calloutRe.FindStringSubmatch(body[0]); m != nil {
		return Callout{Kind: strings.ToUpper(m[1]), Text: strings.Join(body[1:], "\n")}, i
	}
	return Blockquote{Text: strings.Join(body, "\n")}, i
}

// parseUnordered consumes contiguous bullet lines, yielding a TaskList
// when every item carries a checkbox marker and a plain List otherwise.
func parseUnordered(lines []string, start int) (Block, int) {
	var items []string
	i := start
	for i < len(lines) {
		m := unorderedRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			break
		}
		items = append(items, m[1])
		i++
	}

	tasks := make([]TaskItem, 0, len(items))
	for _, it := range items {
		m := taskItemRe.FindStringSubmatch(it)
		if m == nil {
			return List{Items: items}, i
		}
		tasks = append(tasks, TaskItem{Text: m[2], Checked: m[1] != " "})
	}
	return TaskList{Items: tasks}, i
}

// buildTable splits header, separator, and data rows. The separator
// row is discarded.
func buildTable(rows []string) Table {
	t := Table{Headers: splitRow(rows[0])}
	for _, r := range rows[2:] {
		t.Rows = append(t.Rows, splitRow(r))
	}
	return t
}

// splitRow breaks a pipe row into trimmed cells, dropping the empty
// edge cells produced by the leading and trailing pipes.
func splitRow(row string) []string {
	row = strings.Trim(row, "|")
	parts := strings.Split(row, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
