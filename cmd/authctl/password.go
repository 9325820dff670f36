package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword prompts without echo when stdin is a terminal and otherwise
// reads one line from the command's input.
var readPassword = func(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		defer common.WipeByteArray(b)
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// passwordFlag returns the flag value, prompting when it was not given.
func passwordFlag(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return readPassword(cmd, prompt)
}
