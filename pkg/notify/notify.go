// Package notify delivers invite emails. Delivery is best effort: callers
// persist first and surface a failure so the invite can be resent.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDelivery wraps every transport failure.
var ErrDelivery = errors.New("notify: delivery failed")

// InviteMessage is what an invitee needs to accept.
type InviteMessage struct {
	To         string
	InviteURL  string
	ClinicName string
	Role       string
}

// Notifier sends invite messages.
type Notifier interface {
	SendInvite(ctx context.Context, msg InviteMessage) error
	// Kind names the transport for logs and metrics.
	Kind() string
}

// Noop drops every message. It is what an unconfigured deployment gets.
type Noop struct{}

func (Noop) SendInvite(context.Context, InviteMessage) error { return nil }
func (Noop) Kind() string                                    { return "none" }

// IsNoop reports whether n is the unconfigured notifier.
func IsNoop(n Notifier) bool {
	if n == nil {
		return true
	}
	_, ok := n.(Noop)
	return ok
}

// Subject renders the invite subject line.
func Subject(msg InviteMessage) string {
	name := strings.TrimSpace(msg.ClinicName)
	if name == "" {
		name = "the clinic"
	}
	return fmt.Sprintf("You're invited to %s", name)
}

// TextBody renders the plain-text invite body.
func TextBody(msg InviteMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You've been invited to join %s", nonEmpty(msg.ClinicName, "a clinic"))
	if msg.Role != "" {
		fmt.Fprintf(&b, " as %s", msg.Role)
	}
	b.WriteString(".\n\n")
	b.WriteString("Accept your invite:\n")
	b.WriteString(msg.InviteURL)
	b.WriteString("\n\n")
	b.WriteString("If you weren't expecting this invite, you can ignore this email.\n")
	return b.String()
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func validate(msg InviteMessage) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrDelivery)
	}
	if strings.TrimSpace(msg.InviteURL) == "" {
		return fmt.Errorf("%w: missing invite url", ErrDelivery)
	}
	return nil
}
