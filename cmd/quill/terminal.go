package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	// termenv output for consistent terminal styling
	output = termenv.NewOutput(os.Stdout)

	// Style helpers - initialized in initColors()
	headingStyle  termenv.Style
	quoteStyle    termenv.Style
	codeStyle     termenv.Style
	calloutStyle  termenv.Style
	errorStyle    termenv.Style
	dimStyle      termenv.Style
	boldStyle     termenv.Style
	citationStyle termenv.Style
)

// initColors initializes color styles based on terminal background
func initColors() {
	if termenv.HasDarkBackground() {
		headingStyle = output.String().Foreground(output.Color("179")).Bold() // Muted yellow
		quoteStyle = output.String().Foreground(output.Color("244"))          // Gray
		codeStyle = output.String().Foreground(output.Color("65"))            // Muted green
		calloutStyle = output.String().Foreground(output.Color("32")).Bold()  // Muted blue
		errorStyle = output.String().Foreground(output.Color("124"))          // Muted red
		dimStyle = output.String().Faint()
		boldStyle = output.String().Bold()
		citationStyle = output.String().Foreground(output.Color("141")) // Muted purple
	} else {
		headingStyle = output.String().Foreground(output.Color("136")).Bold() // Dark orange
		quoteStyle = output.String().Foreground(output.Color("240"))          // Dark gray
		codeStyle = output.String().Foreground(output.Color("28"))            // Dark green
		calloutStyle = output.String().Foreground(output.Color("26")).Bold()  // Dark blue
		errorStyle = output.String().Foreground(output.Color("160"))          // Dark red
		dimStyle = output.String().Foreground(output.Color("240"))
		boldStyle = output.String().Bold()
		citationStyle = output.String().Foreground(output.Color("90")) // Dark purple
	}
}

// isTerminal checks if output is going to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// terminalWidth returns the stdout width, or a sane default off-terminal
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// readFromStdin reads all lines from stdin and joins them with newlines
func readFromStdin() (string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading stdin: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// hasStdinData checks if stdin has data available
func hasStdinData() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) == 0
}
