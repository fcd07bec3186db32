package queries

// Operations understood by the dclist.net GraphQL API.
var (
	PostBotStats = Operation{
		Name:      "postBotStats",
		Template:  `mutation postBotStats($stats: BotStatsInput!) { postBotStats(stats: $stats) }`,
		Variables: []string{"stats"},
	}

	GetBot = Operation{
		Name:      "getBotById",
		Template:  `query getBotById($botId: String!) { getBot(botId: $botId) { $FIELDS$ } }`,
		Variables: []string{"botId"},
	}

	GetUser = Operation{
		Name:      "getUser",
		Template:  `query getUser($userId: String!) { getUser(userId: $userId) { $FIELDS$ } }`,
		Variables: []string{"userId"},
	}

	GetUserComment = Operation{
		Name:      "getUserComment",
		Template:  `query getUserComment($userId: String!) { getUserComment(userId: $userId) { $FIELDS$ } }`,
		Variables: []string{"userId"},
	}

	IsUserVoted = Operation{
		Name:      "isUserVoted",
		Template:  `query isUserVoted($userId: String!) { isUserVoted(userId: $userId) }`,
		Variables: []string{"userId"},
	}

	// SDKUpdates has one placeholder per union member of the payload.
	SDKUpdates = Operation{
		Name: "sdkUpdates",
		Template: `subscription sdkUpdates($topics: [SdkUpdateTopic!]!) {
	sdkUpdates(topics: $topics) {
		__typename
		... on SdkVoteUpdate { user { $VOTE_FIELDS$ } }
		... on SdkCommentUpdate { comment { $COMMENT_FIELDS$ } }
	}
}`,
		Variables: []string{"topics"},
	}
)

// UserFields selects the public profile of a dclist.net user.
func UserFields() string {
	return `
		id
		username
		discriminator
		avatar
		website
		github
	`
}

// BotFields selects everything in UserFields plus listing stats and prefix
// information.
func BotFields() string {
	return UserFields() + `
		stats {
			userCount
			guildCount
			voteCount
		}
		prefix
		prefixType
		tags
	`
}

// CommentFields selects a comment together with the commented bot (subject)
// and the commenting user (author).
func CommentFields() string {
	return `
		type
		like
		content
		subject {` + UserFields() + `}
		author {` + UserFields() + `}
	`
}

// UpdateFragments returns the fragments for every SDKUpdates placeholder.
func UpdateFragments() map[string]string {
	return map[string]string{
		VotePlaceholder:    UserFields(),
		CommentPlaceholder: CommentFields(),
	}
}
