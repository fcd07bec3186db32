package tools

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	dclist "github.com/jamesprial/dclist-go"
)

// Tool names.
const (
	toolGetBot         = "dclist_get_bot"
	toolGetUser        = "dclist_get_user"
	toolIsUserVoted    = "dclist_is_user_voted"
	toolGetUserComment = "dclist_get_user_comment"
	toolPostStats      = "dclist_post_stats"
)

// Client is the subset of *dclist.Client the tools call.
type Client interface {
	GetBotByID(ctx context.Context, id snowflake.ID) (*dclist.Bot, error)
	GetUserByID(ctx context.Context, id snowflake.ID) (*dclist.User, error)
	IsUserVoted(ctx context.Context, id snowflake.ID) (bool, error)
	GetUserComment(ctx context.Context, id snowflake.ID) (*dclist.Comment, error)
	PostStats(ctx context.Context, opts ...dclist.StatsOption) (bool, error)
}

var _ Client = (*dclist.Client)(nil)

// DCListTools returns the registrations for every dclist.net tool.
func DCListTools(client Client, audit *AuditLogger) []Registration {
	return []Registration{
		toolGetBotReg(client, audit),
		toolGetUserReg(client, audit),
		toolIsUserVotedReg(client, audit),
		toolGetUserCommentReg(client, audit),
		toolPostStatsReg(client, audit),
	}
}

// idLookup builds a tool that takes one optional Discord id and returns
// whatever fetch produces for it.
func idLookup[T any](name, description, idDescription string, audit *AuditLogger, fetch func(context.Context, snowflake.ID) (T, error)) Registration {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("id", mcp.Description(idDescription)),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		params := map[string]any{"id": req.GetString("id", "")}

		id, err := snowflakeArg(req, "id")
		if err == nil {
			var v T
			if v, err = fetch(ctx, id); err == nil {
				LogAudit(audit, name, params, "ok", start)
				return JSONResult(v), nil
			}
		}
		LogAudit(audit, name, params, auditResult(err), start)
		return ErrorResult(err), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func toolGetBotReg(client Client, audit *AuditLogger) Registration {
	return idLookup(toolGetBot,
		"Fetch a bot's dclist.net listing: profile, prefix, tags and vote/guild/user counts.",
		"Discord id of the bot. Omit for the bot this server runs as.",
		audit, client.GetBotByID)
}

func toolGetUserReg(client Client, audit *AuditLogger) Registration {
	return idLookup(toolGetUser,
		"Fetch a dclist.net user profile.",
		"Discord id of the user. Omit for the bot's owner.",
		audit, client.GetUserByID)
}

func toolIsUserVotedReg(client Client, audit *AuditLogger) Registration {
	return idLookup(toolIsUserVoted,
		"Report whether a user has voted for this bot on dclist.net.",
		"Discord id of the user. Omit for the bot's owner.",
		audit, func(ctx context.Context, id snowflake.ID) (map[string]bool, error) {
			voted, err := client.IsUserVoted(ctx, id)
			return map[string]bool{"voted": voted}, err
		})
}

func toolGetUserCommentReg(client Client, audit *AuditLogger) Registration {
	return idLookup(toolGetUserComment,
		"Fetch the comment a user left on this bot's dclist.net page. Returns null when there is none.",
		"Discord id of the user. Omit for the bot's owner.",
		audit, client.GetUserComment)
}

func toolPostStatsReg(client Client, audit *AuditLogger) Registration {
	tool := mcp.NewTool(toolPostStats,
		mcp.WithDescription("Post this bot's guild, user and shard counts to dclist.net. Counts left out are taken from the server's configuration."),
		mcp.WithNumber("guild_count", mcp.Description("Number of guilds the bot is in.")),
		mcp.WithNumber("user_count", mcp.Description("Number of users the bot can see.")),
		mcp.WithNumber("shard_count", mcp.Description("Number of shards. Defaults to 1.")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		args := req.GetArguments()
		params := map[string]any{}

		var opts []dclist.StatsOption
		if _, ok := args["guild_count"]; ok {
			n := req.GetInt("guild_count", 0)
			params["guild_count"] = n
			opts = append(opts, dclist.WithGuildCount(n))
		}
		if _, ok := args["user_count"]; ok {
			n := req.GetInt("user_count", 0)
			params["user_count"] = n
			opts = append(opts, dclist.WithUserCount(n))
		}
		if _, ok := args["shard_count"]; ok {
			n := req.GetInt("shard_count", 1)
			params["shard_count"] = n
			opts = append(opts, dclist.WithShardCount(n))
		}

		posted, err := client.PostStats(ctx, opts...)
		LogAudit(audit, toolPostStats, params, auditResult(err), start)
		if err != nil {
			return ErrorResult(err), nil
		}
		return JSONResult(map[string]bool{"posted": posted}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
