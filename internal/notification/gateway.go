package notification

import (
	"context"
	"fmt"
)

// Message is what a gateway transmits.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Outcome is the provider's answer to a send. A rejected send carries the provider's detail.
type Outcome struct {
	Accepted   bool
	ProviderID string
	Detail     string
}

// Gateway performs the network call to one provider.
// A returned error means the provider could not be reached or the call crashed;
// a provider that answered with a failure returns Outcome{Accepted: false}.
type Gateway interface {
	Name() string
	Send(ctx context.Context, msg Message) (Outcome, error)
}

// TransportError reports that a gateway call failed before the provider gave an answer.
type TransportError struct {
	Channel  Type
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s via %s: transport failure: %v", e.Channel, e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
