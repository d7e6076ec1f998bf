package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/password"
	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("passwords do not match")

// passwordReader prompts and returns one line of input.
type passwordReader func(prompt string) (string, error)

// readTerminalPassword reads without echo when stdin is a terminal and falls
// back to a plain line read for pipes.
func readTerminalPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// runHashPassword prints the PHC-encoded argon2id hash of the password read
// twice from read.
func runHashPassword(w io.Writer, read passwordReader, cfg jobAuth.PasswordConfig) error {
	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Memory,
		Time:             cfg.Time,
		Parallelism:      cfg.Parallelism,
		SaltLength:       cfg.SaltLength,
		KeyLength:        cfg.KeyLength,
		MinPasswordBytes: cfg.MinBytes,
		MaxPasswordBytes: cfg.MaxBytes,
	})
	if err != nil {
		return fmt.Errorf("invalid password config: %w", err)
	}

	pw, err := read("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := read("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if pw != confirm {
		return errPasswordMismatch
	}

	hash, err := hasher.Hash(pw)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}
