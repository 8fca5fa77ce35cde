package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// termStyle provides terminal styling helpers with automatic color detection
type termStyle struct {
	useColors bool
}

func newTermStyle() *termStyle {
	return &termStyle{
		useColors: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (t *termStyle) colorize(code, text string) string {
	if !t.useColors {
		return text
	}
	return code + text + ansiReset
}

// Success prints a success message with green checkmark
func (t *termStyle) Success(msg string) {
	fmt.Println(t.colorize(ansiGreen, "✓ "+msg))
}

// Warn prints a warning message with yellow warning symbol
func (t *termStyle) Warn(msg string) {
	fmt.Println(t.colorize(ansiYellow, "⚠ "+msg))
}

// Error prints an error message with red X
func (t *termStyle) Error(msg string) {
	fmt.Println(t.colorize(ansiRed, "✗ "+msg))
}

// Dim returns dimmed text
func (t *termStyle) Dim(text string) string {
	return t.colorize(ansiDim, text)
}

// Bold returns bold text
func (t *termStyle) Bold(text string) string {
	return t.colorize(ansiBold, text)
}

// Cyan returns cyan text (for URLs, commands, paths)
func (t *termStyle) Cyan(text string) string {
	return t.colorize(ansiCyan, text)
}

// Yellow returns yellow text
func (t *termStyle) Yellow(text string) string {
	return t.colorize(ansiYellow, text)
}

// Green returns green text
func (t *termStyle) Green(text string) string {
	return t.colorize(ansiGreen, text)
}

// KeyValue prints a key-value pair for summaries
func (t *termStyle) KeyValue(key, value string) {
	fmt.Printf("  %s  %s\n", t.Bold(fmt.Sprintf("%-14s", key+":")), value)
}

// Bullet prints a bullet point
func (t *termStyle) Bullet(text string) {
	fmt.Printf("  • %s\n", text)
}

// Blank prints a blank line
func (t *termStyle) Blank() {
	fmt.Println()
}
