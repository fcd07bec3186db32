package dclist

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"

	"github.com/bwmarrin/snowflake"

	"github.com/jamesprial/dclist-go/internal/queries"
	"github.com/jamesprial/dclist-go/transport"
)

// Client is the bot-facing dclist.net API. It is safe for concurrent use;
// every call opens its own transport session.
type Client struct {
	host   Host
	token  string
	engine *engine
	logger *slog.Logger
}

// New builds a Client for host. host may be nil if every call passes ids and
// counts explicitly.
//
// The token comes from WithToken, else the DCLIST_TOKEN environment
// variable. Without one the client still answers queries unauthenticated
// but never posts stats; ErrNoToken is logged at Warn.
func New(host Host, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.token == "" {
		o.token = os.Getenv(EnvToken)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.token == "" {
		o.logger.Warn(ErrNoToken.Error())
	}
	if o.httpTransport == nil {
		o.httpTransport = transport.NewHTTP(transport.WithHTTPAuth(HTTPAuthScheme, o.token))
	}
	if o.wsTransport == nil {
		o.wsTransport = transport.NewWebSocket(transport.WithWebSocketAuth(WebSocketAuthScheme, o.token))
	}

	var m *metrics
	if o.registerer != nil {
		var err error
		if m, err = newMetrics(o.registerer); err != nil {
			return nil, fmt.Errorf("dclist: register metrics: %w", err)
		}
	}

	return &Client{
		host:   host,
		token:  o.token,
		logger: o.logger,
		engine: &engine{
			http:    o.httpTransport,
			ws:      o.wsTransport,
			forceWS: o.forceWebSocket,
			logger:  o.logger,
			norm:    normalizer{logger: o.logger},
			metrics: m,
		},
	}, nil
}

// TokenProvided reports whether the client has an API token.
func (c *Client) TokenProvided() bool { return c.token != "" }

func (c *Client) ready(ctx context.Context) error {
	if c.host == nil {
		return ErrNoHost
	}
	if err := c.host.WaitUntilReady(ctx); err != nil {
		return fmt.Errorf("dclist: wait for host: %w", err)
	}
	return nil
}

// selfID returns id, or the bot's own id when id is zero.
func (c *Client) selfID(ctx context.Context, id snowflake.ID) (snowflake.ID, error) {
	if id != 0 {
		return id, nil
	}
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	own, err := c.host.CurrentUserID(ctx)
	if err != nil {
		return 0, fmt.Errorf("dclist: resolve bot id: %w", err)
	}
	return own, nil
}

// ownerID returns id, or the application owner's id when id is zero.
func (c *Client) ownerID(ctx context.Context, id snowflake.ID) (snowflake.ID, error) {
	if id != 0 {
		return id, nil
	}
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	owner, err := c.host.OwnerID(ctx)
	if err != nil {
		return 0, fmt.Errorf("dclist: resolve owner id: %w", err)
	}
	return owner, nil
}

// StatsOption overrides a value PostStats would otherwise derive.
type StatsOption func(*statsParams)

type statsParams struct {
	guildCount *int
	userCount  *int
	shardCount int
}

// WithGuildCount posts n instead of the host's guild count.
func WithGuildCount(n int) StatsOption { return func(p *statsParams) { p.guildCount = &n } }

// WithUserCount posts n instead of the host's member count.
func WithUserCount(n int) StatsOption { return func(p *statsParams) { p.userCount = &n } }

// WithShardCount posts n shards. Values below 1 post 1.
func WithShardCount(n int) StatsOption { return func(p *statsParams) { p.shardCount = n } }

// botStatsInput mirrors the BotStatsInput GraphQL input type.
type botStatsInput struct {
	GuildCount int `json:"guildCount"`
	UserCount  int `json:"userCount"`
	ShardCount int `json:"shardCount"`
}

// PostStats posts the bot's guild, user and shard counts. Counts not given
// as options come from the host. Without a token nothing is sent and
// PostStats returns false with a nil error.
func (c *Client) PostStats(ctx context.Context, opts ...StatsOption) (bool, error) {
	if !c.TokenProvided() {
		c.logger.DebugContext(ctx, "not posting bot stats: no token")
		return false, nil
	}

	p := statsParams{}
	for _, opt := range opts {
		opt(&p)
	}
	input, err := c.statsInput(ctx, p)
	if err != nil {
		return false, err
	}

	data, err := c.engine.execute(ctx, call{
		op:   queries.PostBotStats,
		vars: map[string]any{"stats": input},
	})
	if err != nil {
		return false, err
	}
	c.logger.DebugContext(ctx, "posted bot stats",
		slog.Int("guild_count", input.GuildCount),
		slog.Int("user_count", input.UserCount),
		slog.Int("shard_count", input.ShardCount),
	)
	return unwrap[bool](data, "postBotStats")
}

func (c *Client) statsInput(ctx context.Context, p statsParams) (botStatsInput, error) {
	input := botStatsInput{ShardCount: max(p.shardCount, 1)}

	if p.guildCount == nil || p.userCount == nil {
		if err := c.ready(ctx); err != nil {
			return input, err
		}
	}
	if p.guildCount != nil {
		input.GuildCount = *p.guildCount
	} else {
		n, err := c.host.GuildCount(ctx)
		if err != nil {
			return input, fmt.Errorf("dclist: count guilds: %w", err)
		}
		input.GuildCount = n
	}
	if p.userCount != nil {
		input.UserCount = *p.userCount
	} else {
		n, err := c.host.MemberCount(ctx)
		if err != nil {
			return input, fmt.Errorf("dclist: count members: %w", err)
		}
		input.UserCount = n
	}
	return input, nil
}

// GetBotByID fetches a listed bot. A zero id fetches this bot.
func (c *Client) GetBotByID(ctx context.Context, id snowflake.ID) (*Bot, error) {
	id, err := c.selfID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := c.engine.execute(ctx, call{
		op:        queries.GetBot,
		fragments: map[string]string{queries.FieldsPlaceholder: queries.BotFields()},
		vars:      map[string]any{"botId": id.String()},
	})
	if err != nil {
		return nil, err
	}
	return unwrap[*Bot](data, "getBot")
}

// GetUserByID fetches a dclist.net user. A zero id fetches the bot's owner.
func (c *Client) GetUserByID(ctx context.Context, id snowflake.ID) (*User, error) {
	id, err := c.ownerID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := c.engine.execute(ctx, call{
		op:        queries.GetUser,
		fragments: map[string]string{queries.FieldsPlaceholder: queries.UserFields()},
		vars:      map[string]any{"userId": id.String()},
	})
	if err != nil {
		return nil, err
	}
	return unwrap[*User](data, "getUser")
}

// IsUserVoted reports whether the user voted for this bot. A zero id checks
// the bot's owner.
func (c *Client) IsUserVoted(ctx context.Context, id snowflake.ID) (bool, error) {
	id, err := c.ownerID(ctx, id)
	if err != nil {
		return false, err
	}
	data, err := c.engine.execute(ctx, call{
		op:   queries.IsUserVoted,
		vars: map[string]any{"userId": id.String()},
	})
	if err != nil {
		return false, err
	}
	return unwrap[bool](data, "isUserVoted")
}

// GetUserComment fetches the user's comment on this bot's page. It returns
// nil when the user has not commented. A zero id uses the bot's owner.
func (c *Client) GetUserComment(ctx context.Context, id snowflake.ID) (*Comment, error) {
	id, err := c.ownerID(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := c.engine.execute(ctx, call{
		op:        queries.GetUserComment,
		fragments: map[string]string{queries.FieldsPlaceholder: queries.CommentFields()},
		vars:      map[string]any{"userId": id.String()},
	})
	if err != nil {
		return nil, err
	}
	return unwrap[*Comment](data, "getUserComment")
}

// SubscribeToUpdates streams new votes and comments for this bot until ctx
// is cancelled, the connection ends, or the caller stops ranging. The
// connection is released in every case.
//
//	for u, err := range client.SubscribeToUpdates(ctx) {
//		if err != nil {
//			return err
//		}
//		switch u.Kind() { ... }
//	}
func (c *Client) SubscribeToUpdates(ctx context.Context) iter.Seq2[*Update, error] {
	return func(yield func(*Update, error) bool) {
		updates := c.engine.subscribe(ctx, call{
			op:        queries.SDKUpdates,
			fragments: queries.UpdateFragments(),
			vars:      map[string]any{"topics": []string{queries.TopicNewComment, queries.TopicNewVote}},
		})
		for data, err := range updates {
			if err != nil {
				yield(nil, err)
				return
			}
			u, err := unwrap[*Update](data, "sdkUpdates")
			if !yield(u, err) || err != nil {
				return
			}
		}
	}
}
