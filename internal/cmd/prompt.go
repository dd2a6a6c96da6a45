package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// stdinReader is shared by all prompts so that buffered input is not lost
// between two of them
var stdinReader = bufio.NewReader(os.Stdin)

// PromptSelect displays numbered options and returns the selected index
// Returns -1 if cancelled (user enters "0" or empty)
func PromptSelect(message string, options []string) int {
	if len(options) == 0 {
		return -1
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, message)
	for i, opt := range options {
		fmt.Fprintf(os.Stderr, "  [%d] %s\n", i+1, opt)
	}
	fmt.Fprintf(os.Stderr, "  [0] Skip\n")
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, "? Select: ")

	input, err := stdinReader.ReadString('\n')
	if err != nil {
		return -1
	}

	input = strings.TrimSpace(input)
	if input == "" || input == "0" {
		return -1
	}

	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(options) {
		return -1
	}

	return choice - 1
}

// PromptString asks for a line of input, returning def when empty
func PromptString(message, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(os.Stderr, "? %s [%s]: ", message, def)
	} else {
		fmt.Fprintf(os.Stderr, "? %s: ", message)
	}

	input, err := stdinReader.ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	return input, nil
}

// PromptPassword reads a password from the terminal without echo
func PromptPassword(message string) (string, error) {
	fmt.Fprintf(os.Stderr, "? %s: ", message)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// readSecretLine reads the first line of r, as used by --password-stdin
func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return line, nil
}

// IsInteractive returns true if stdin is a terminal and --yes flag is not set
func IsInteractive() bool {
	if IsYesMode() {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}
