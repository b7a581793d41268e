// Command pwhash reads a password from the terminal and prints its bcrypt
// hash, for seeding users by hand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/chirper/internal/server/auth"
	"golang.org/x/term"
)

// readPassword reads a line from the terminal without echo.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func main() {
	cost := flag.Int("cost", auth.DefaultHashCost, "bcrypt cost")
	flag.Parse()

	if err := run(os.Stderr, os.Stdout, *cost); err != nil {
		fmt.Fprintln(os.Stderr, "pwhash:", err)
		os.Exit(1)
	}
}

func run(prompt, out io.Writer, cost int) error {
	fmt.Fprint(prompt, "Password: ")
	pw, err := readPassword()
	fmt.Fprintln(prompt)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if len(pw) == 0 {
		return errors.New("empty password")
	}

	hash, err := auth.NewPasswordHasher(cost).Hash(string(pw))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, hash)
	return nil
}
