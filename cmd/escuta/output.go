package main

import (
	"fmt"
	"os"

	"github.com/mbarros/escuta/internal/interview"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// printDialogue writes interviewer messages to stdout, one per line,
// the way the respondent would read them.
func printDialogue(msgs []interview.Message) {
	for _, m := range msgs {
		fmt.Println(m.Content)
	}
}

// printTranscript writes the full dialogue with author labels.
func printTranscript(msgs []interview.Message) {
	for _, m := range msgs {
		fmt.Printf("%s %s\n", colorize(colorBold, string(m.Author)+":"), m.Content)
	}
}
