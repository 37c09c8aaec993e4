package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

var (
	// termenv output for consistent terminal styling
	output = termenv.NewOutput(os.Stdout)

	errorStyle     termenv.Style
	successStyle   termenv.Style
	dimStyle       termenv.Style
	userStyle      termenv.Style
	assistantStyle termenv.Style
	systemStyle    termenv.Style
)

// initColors picks role colors suited to the terminal background.
func initColors() {
	if termenv.HasDarkBackground() {
		errorStyle = output.String().Foreground(output.Color("124"))
		successStyle = output.String().Foreground(output.Color("65"))
		dimStyle = output.String().Faint()
		userStyle = output.String().Foreground(output.Color("32")).Bold()
		assistantStyle = output.String().Foreground(output.Color("141"))
		systemStyle = output.String().Foreground(output.Color("244"))
	} else {
		errorStyle = output.String().Foreground(output.Color("160"))
		successStyle = output.String().Foreground(output.Color("28"))
		dimStyle = output.String().Foreground(output.Color("240"))
		userStyle = output.String().Foreground(output.Color("26")).Bold()
		assistantStyle = output.String().Foreground(output.Color("90"))
		systemStyle = output.String().Foreground(output.Color("238"))
	}
}

func printError(format string, args ...any) {
	fmt.Println(errorStyle.Styled(fmt.Sprintf(format, args...)))
}

func printSystem(format string, args ...any) {
	fmt.Println(systemStyle.Styled(fmt.Sprintf(format, args...)))
}

func printDim(format string, args ...any) {
	fmt.Println(dimStyle.Styled(fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) {
	fmt.Println(successStyle.Styled(fmt.Sprintf(format, args...)))
}

func promptLabel() string {
	return userStyle.Styled("> ")
}

// promptYesNo asks for confirmation on stdin. Anything other than an
// explicit yes keeps the default.
func promptYesNo(reader *bufio.Scanner, prompt string, defaultValue bool) bool {
	suffix := " (y/N): "
	if defaultValue {
		suffix = " (Y/n): "
	}
	fmt.Print(prompt + suffix)
	if !reader.Scan() {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(reader.Text())) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultValue
	}
}
