package dclist

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// ReadinessWaiter blocks until the bot session is ready to answer identity
// questions.
type ReadinessWaiter interface {
	WaitUntilReady(ctx context.Context) error
}

// IdentityProvider reports the bot's own user id.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (snowflake.ID, error)
}

// OwnerProvider reports the id of the bot application's owner.
type OwnerProvider interface {
	OwnerID(ctx context.Context) (snowflake.ID, error)
}

// GuildCounter reports how many guilds the bot is in.
type GuildCounter interface {
	GuildCount(ctx context.Context) (int, error)
}

// MemberCounter reports how many members the bot can see across guilds.
type MemberCounter interface {
	MemberCount(ctx context.Context) (int, error)
}

// Host is everything the Client needs from the bot framework. Adapters for
// a particular Discord library implement it; StaticHost covers bots that
// already know the answers.
type Host interface {
	ReadinessWaiter
	IdentityProvider
	OwnerProvider
	GuildCounter
	MemberCounter
}

// StaticHost is a Host backed by fixed values. It is always ready.
type StaticHost struct {
	BotID   snowflake.ID
	Owner   snowflake.ID
	Guilds  int
	Members int
}

var _ Host = StaticHost{}

func (StaticHost) WaitUntilReady(context.Context) error { return nil }

func (h StaticHost) CurrentUserID(context.Context) (snowflake.ID, error) {
	if h.BotID == 0 {
		return 0, &ClientError{Text: "bot id is not configured"}
	}
	return h.BotID, nil
}

func (h StaticHost) OwnerID(context.Context) (snowflake.ID, error) {
	if h.Owner == 0 {
		return 0, &ClientError{Text: "owner id is not configured"}
	}
	return h.Owner, nil
}

func (h StaticHost) GuildCount(context.Context) (int, error) { return h.Guilds, nil }

func (h StaticHost) MemberCount(context.Context) (int, error) { return h.Members, nil }
