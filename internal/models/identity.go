package models

import "fmt"

// EmailStatus tells how an author email was obtained
type EmailStatus int

const (
	EmailNotFound EmailStatus = iota
	EmailResolved
	EmailSynthesized
)

func (s EmailStatus) String() string {
	switch s {
	case EmailResolved:
		return "resolved"
	case EmailSynthesized:
		return "synthesized"
	default:
		return "not_found"
	}
}

// AuthorEmail is the result of looking up an author's address:
// Resolved (a real address), Synthesized (placeholder derived from the user id) or NotFound.
type AuthorEmail struct {
	Status  EmailStatus
	Address string
}

func ResolvedEmail(address string) AuthorEmail {
	return AuthorEmail{Status: EmailResolved, Address: address}
}

func SynthesizedEmail(address string) AuthorEmail {
	return AuthorEmail{Status: EmailSynthesized, Address: address}
}

func NoEmail() AuthorEmail {
	return AuthorEmail{Status: EmailNotFound}
}

func (e AuthorEmail) String() string {
	if e.Status == EmailNotFound {
		return "not_found"
	}
	return fmt.Sprintf("%s(%s)", e.Status, e.Address)
}

// AuthorIdentity is an addressable user in the notification channel
type AuthorIdentity struct {
	UserID    string
	Email     string
	DMChannel string
}
