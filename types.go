package dclist

import "github.com/bwmarrin/snowflake"

// User is a dclist.net user profile.
type User struct {
	ID            snowflake.ID `json:"id"`
	Username      string       `json:"username"`
	Discriminator string       `json:"discriminator"`
	Avatar        string       `json:"avatar"`
	Website       string       `json:"website"`
	Github        string       `json:"github"`
}

// BotStats are the counters shown on a bot's listing.
type BotStats struct {
	UserCount  int `json:"userCount"`
	GuildCount int `json:"guildCount"`
	VoteCount  int `json:"voteCount"`
}

// Bot is a bot listed on dclist.net.
type Bot struct {
	User
	Stats      BotStats `json:"stats"`
	Prefix     string   `json:"prefix"`
	PrefixType string   `json:"prefixType"`
	Tags       []string `json:"tags"`
}

// Comment is a user's comment on a bot page. Subject is the commented bot.
type Comment struct {
	Type    string `json:"type"`
	Like    bool   `json:"like"`
	Content string `json:"content"`
	Subject *User  `json:"subject"`
	Author  *User  `json:"author"`
}

// UpdateKind distinguishes sdkUpdates payloads.
type UpdateKind string

const (
	UpdateVote    UpdateKind = "vote"
	UpdateComment UpdateKind = "comment"
	UpdateUnknown UpdateKind = "unknown"
)

// Update is one push from the sdkUpdates subscription. Exactly one of User
// (a new vote by that user) and Comment is set.
type Update struct {
	Typename string   `json:"__typename"`
	User     *User    `json:"user,omitempty"`
	Comment  *Comment `json:"comment,omitempty"`
}

// Kind reports which payload the update carries.
func (u *Update) Kind() UpdateKind {
	switch {
	case u == nil:
		return UpdateUnknown
	case u.Comment != nil:
		return UpdateComment
	case u.User != nil:
		return UpdateVote
	default:
		return UpdateUnknown
	}
}
