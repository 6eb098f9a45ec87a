package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errNotConfirmed is returned when a destructive command was neither confirmed nor run with --yes.
var errNotConfirmed = errors.New("not confirmed; pass --yes to run without a prompt")

// confirm asks a yes/no question on the terminal. Without a terminal the answer is no.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// confirmAction shows what a destructive command is about to do and asks before going on.
// --yes skips the prompt.
func confirmAction(cmd *cobra.Command, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}
	if !confirm(what + "\nContinue?") {
		return fmt.Errorf("%s: %w", what, errNotConfirmed)
	}
	return nil
}
