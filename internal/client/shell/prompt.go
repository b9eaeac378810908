package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/CampusPortal/internal/validation"
)

// Prompter reads answers to interactive questions.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. ok is false at end of input.
func (p *Prompter) Ask(label string) (answer string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Line reads the next raw line.
func (p *Prompter) Line() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return p.scanner.Text(), true
}

// PromptLogin asks for credentials and validates them before anything is
// sent. A validation failure is returned as an error for display.
func PromptLogin(p *Prompter) (validation.LoginForm, error) {
	var form validation.LoginForm
	var ok bool
	if form.Email, ok = p.Ask("Email: "); !ok {
		return form, io.EOF
	}
	if form.Password, ok = p.Ask("Password: "); !ok {
		return form, io.EOF
	}
	return form, validation.Struct(form)
}

// PromptChangePassword asks for the old password and the new one twice.
func PromptChangePassword(p *Prompter) (validation.ChangePasswordForm, error) {
	var form validation.ChangePasswordForm
	var ok bool
	if form.OldPassword, ok = p.Ask("Current password: "); !ok {
		return form, io.EOF
	}
	if form.NewPassword, ok = p.Ask("New password: "); !ok {
		return form, io.EOF
	}
	confirm, ok := p.Ask("Confirm new password: ")
	if !ok {
		return form, io.EOF
	}
	if err := validation.Struct(form); err != nil {
		return form, err
	}
	if confirm != form.NewPassword {
		return form, errPasswordMismatch
	}
	return form, nil
}
