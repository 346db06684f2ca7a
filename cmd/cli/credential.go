package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/limulus26/Nmapx/internal/config"
	"github.com/limulus26/Nmapx/internal/errors"
	"github.com/limulus26/Nmapx/internal/executor"
)

// needsCredential reports whether nmap will run through an elevation helper
// that has to be fed a password.
func needsCredential(cfg *config.Config) bool {
	return cfg.Scanning.Elevate && os.Geteuid() != 0
}

// promptCredential reads the elevation password once. On a terminal the
// input is not echoed; otherwise a single line is read from in.
func promptCredential(in *os.File, prompt io.Writer, helper string) (executor.Secret, error) {
	if term.IsTerminal(int(in.Fd())) {
		_, _ = fmt.Fprintf(prompt, "[%s] password: ", helper)
		b, err := term.ReadPassword(int(in.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return executor.Secret{}, errors.WrapConfigError(errors.CodeConfiguration, "failed to read password", err)
		}
		return executor.SecretFromBytes(b), nil
	}
	return readCredentialLine(in)
}

func readCredentialLine(r io.Reader) (executor.Secret, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return executor.Secret{}, errors.WrapConfigError(errors.CodeConfiguration, "failed to read password", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return executor.Secret{}, errors.NewConfigError(errors.CodeConfiguration, "empty password on stdin")
	}
	return executor.NewSecret(line), nil
}
