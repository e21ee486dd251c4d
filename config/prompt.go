package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for inputs that were not configured
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // terminal descriptor for hidden input, -1 when not a terminal
}

// NewPrompter prompts on stdin/stdout, hiding the token when stdin is a terminal
func NewPrompter() *Prompter {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &Prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: fd}
}

// NewPrompterFrom reads answers line by line from r; nothing is hidden
func NewPrompterFrom(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(r), out: w, fd: -1}
}

// FillMissing prompts for the token, org ID and site name when they are empty
func (p *Prompter) FillMissing(cfg *Config) error {
	if cfg.APIToken == "" {
		fmt.Fprintln(p.out, "API token was not found in the environment or .env file.")
		token, err := p.readSecret("Please enter your API token: ")
		if err != nil {
			return err
		}
		cfg.APIToken = token
	}

	if cfg.OrgID == "" {
		fmt.Fprintln(p.out, "Your Mist org ID was not found in the environment or .env file.")
		org, err := p.readLine("Please enter your Mist org ID: ")
		if err != nil {
			return err
		}
		cfg.OrgID = org
	}

	if cfg.SiteName == "" {
		site, err := p.readLine("What site would you like to backup maps for?: ")
		if err != nil {
			return err
		}
		cfg.SiteName = site
	}
	return cfg.Validate()
}

func (p *Prompter) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) readSecret(prompt string) (string, error) {
	if p.fd < 0 {
		return p.readLine(prompt)
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read API token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
