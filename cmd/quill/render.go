package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/quillchat/quill/markdown"
	"github.com/quillchat/quill/messages"
	"github.com/quillchat/quill/sessions"
)

// showContext renders a stored conversation with block styling
func showContext(store sessions.SessionStore, config *Config) error {
	session, err := store.Get(config.ContextName)
	if err != nil {
		return err
	}
	defer session.Close()

	history := session.GetHistory()
	if len(history) == 0 {
		fmt.Fprintf(os.Stderr, "Context '%s' is empty\n", config.ContextName)
		return nil
	}

	for _, msg := range history {
		switch msg.Role {
		case messages.MessageRoleUser:
			printStyled(config, boldStyle, "you: "+msg.Content)
			fmt.Println()
		case messages.MessageRoleAssistant:
			renderAssistantTurn(config, msg)
		}
	}
	return nil
}

// renderAssistantTurn prints one assistant message as styled blocks
func renderAssistantTurn(config *Config, msg messages.ChatMessage) {
	for _, block := range markdown.Parse(msg.Content) {
		renderBlock(config, block)
		fmt.Println()
	}

	for _, tc := range msg.ToolCalls {
		line := fmt.Sprintf("tool %s: %s", tc.Tool, tc.Status)
		if tc.Error != "" {
			printStyled(config, errorStyle, line+" ("+tc.Error+")")
			continue
		}
		printStyled(config, dimStyle, line)
	}
	for i, c := range msg.Citations {
		printStyled(config, citationStyle, fmt.Sprintf("[%d] %s (%s)", i+1, c.Source, c.SourceRef))
	}
	if msg.Usage != nil {
		printStyled(config, dimStyle, fmt.Sprintf("%d tokens ($%.4f)", msg.Usage.TotalTokens, msg.Usage.CostUSD))
	}
	fmt.Println()
}

// renderBlock writes one block with terminal styling
func renderBlock(config *Config, block markdown.Block) {
	switch b := block.(type) {
	case markdown.Text:
		fmt.Println(b.Text)

	case markdown.Heading:
		printStyled(config, headingStyle, strings.Repeat("#", b.Level)+" "+b.Text)

	case markdown.Code:
		header := "```" + b.Language
		printStyled(config, dimStyle, header)
		printStyled(config, codeStyle, b.Code)
		printStyled(config, dimStyle, "```")

	case markdown.List:
		for i, item := range b.Items {
			if b.Ordered {
				fmt.Printf("%d. %s\n", i+1, item)
			} else {
				fmt.Printf("• %s\n", item)
			}
		}

	case markdown.TaskList:
		for _, item := range b.Items {
			box := "☐"
			if item.Checked {
				box = "☑"
			}
			fmt.Printf("%s %s\n", box, item.Text)
		}

	case markdown.Blockquote:
		for _, line := range strings.Split(b.Text, "\n") {
			printStyled(config, quoteStyle, "│ "+line)
		}

	case markdown.Callout:
		printStyled(config, calloutStyle, "["+b.Kind+"]")
		for _, line := range strings.Split(b.Text, "\n") {
			printStyled(config, quoteStyle, "│ "+line)
		}

	case markdown.Table:
		renderTable(config, b)

	case markdown.Rule:
		width := min(terminalWidth(), 60)
		printStyled(config, dimStyle, strings.Repeat("─", width))

	case markdown.Math:
		if b.Inline {
			fmt.Println("$" + b.Text + "$")
		} else {
			printStyled(config, codeStyle, b.Text)
		}

	case markdown.Image:
		printStyled(config, dimStyle, fmt.Sprintf("[image: %s] %s", b.Alt, b.URL))

	case markdown.Details:
		printStyled(config, boldStyle, "▸ "+b.Text)
		for _, child := range b.Children {
			renderBlock(config, child)
		}

	case markdown.Chart:
		title := b.Title
		if title == "" {
			title = b.ChartType
		}
		printStyled(config, dimStyle, fmt.Sprintf("[chart: %s]", title))
	}
}

// renderTable pads cells so columns line up
func renderTable(config *Config, t markdown.Table) {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	pad := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			w := len(c)
			if i < len(widths) {
				w = widths[i]
			}
			parts[i] = fmt.Sprintf("%-*s", w, c)
		}
		return strings.Join(parts, "  ")
	}

	printStyled(config, boldStyle, pad(t.Headers))
	for _, row := range t.Rows {
		fmt.Println(pad(row))
	}
}

func printStyled(config *Config, style termenv.Style, text string) {
	if config.Plain {
		fmt.Println(text)
		return
	}
	fmt.Println(style.Styled(text))
}
