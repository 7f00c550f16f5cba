// Package identity maps content authors to users that can receive a direct message.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/slack"
	"github.com/rs/zerolog"
)

// ErrSynthesizedEmail is returned when only a placeholder address exists and real ones are required
var ErrSynthesizedEmail = errors.New("author email is synthesized")

// Directory is the notification workspace: its member list and DM channels
type Directory interface {
	ListUsers(ctx context.Context) ([]slack.User, error)
	OpenDM(ctx context.Context, userID string) (string, error)
}

// EmailResolver finds an author's address inside the item's own source
type EmailResolver interface {
	ResolveAuthorEmail(ctx context.Context, item models.ContentItem) (models.AuthorEmail, error)
}

// Resolver resolves identities fresh for every call
type Resolver struct {
	directory        Directory
	requireRealEmail bool
	logger           zerolog.Logger
}

// NewResolver creates a resolver. With requireRealEmail set, synthesized addresses are rejected
// before the directory is consulted.
func NewResolver(directory Directory, requireRealEmail bool, logger zerolog.Logger) *Resolver {
	return &Resolver{
		directory:        directory,
		requireRealEmail: requireRealEmail,
		logger:           logger.With().Str("component", "IdentityResolver").Logger(),
	}
}

// Resolve returns the addressable identity of item's author. Message authors already live in
// the notification workspace; record authors are matched by email.
func (r *Resolver) Resolve(ctx context.Context, item models.ContentItem, emails EmailResolver) (models.AuthorIdentity, error) {
	switch item.Kind {
	case models.SourceKindMessageChannel:
		return r.direct(ctx, item.AuthorID)
	case models.SourceKindRecordDatabase:
		return r.byEmail(ctx, item, emails)
	default:
		return models.AuthorIdentity{}, common.NewError("unknown source kind %q", item.Kind)
	}
}

func (r *Resolver) direct(ctx context.Context, userID string) (models.AuthorIdentity, error) {
	if userID == "" {
		return models.AuthorIdentity{}, common.WrapError(common.ErrNotFound, "message has no author")
	}
	dm, err := r.directory.OpenDM(ctx, userID)
	if err != nil {
		return models.AuthorIdentity{}, common.WrapErrorf(err, "open DM with %s", userID)
	}
	return models.AuthorIdentity{UserID: userID, DMChannel: dm}, nil
}

func (r *Resolver) byEmail(ctx context.Context, item models.ContentItem, emails EmailResolver) (models.AuthorIdentity, error) {
	email, err := emails.ResolveAuthorEmail(ctx, item)
	if err != nil {
		return models.AuthorIdentity{}, common.WrapError(err, "resolve author email")
	}

	switch email.Status {
	case models.EmailNotFound:
		return models.AuthorIdentity{}, common.WrapErrorf(common.ErrNotFound, "no author email for %s", item.ID)
	case models.EmailSynthesized:
		if r.requireRealEmail {
			return models.AuthorIdentity{}, common.WrapErrorf(ErrSynthesizedEmail, "author %s", item.AuthorID)
		}
		r.logger.Debug().Str("item_id", item.ID).Str("email", email.Address).Msg("Using synthesized author email")
	}

	users, err := r.directory.ListUsers(ctx)
	if err != nil {
		return models.AuthorIdentity{}, common.WrapError(err, "list directory users")
	}

	user, ok := findByEmail(users, email.Address)
	if !ok {
		return models.AuthorIdentity{}, common.WrapErrorf(common.ErrNotFound, "no directory user with email %s", email.Address)
	}

	dm, err := r.directory.OpenDM(ctx, user.ID)
	if err != nil {
		return models.AuthorIdentity{}, common.WrapErrorf(err, "open DM with %s", user.ID)
	}
	return models.AuthorIdentity{UserID: user.ID, Email: email.Address, DMChannel: dm}, nil
}

func findByEmail(users []slack.User, email string) (slack.User, bool) {
	for _, u := range users {
		if u.Deleted || u.IsBot {
			continue
		}
		if u.Profile.Email != "" && strings.EqualFold(u.Profile.Email, email) {
			return u, true
		}
	}
	return slack.User{}, false
}
