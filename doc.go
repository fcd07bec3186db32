// Package dclist is a client for the dclist.net bot listing API.
//
// A Client posts a bot's statistics, looks up bots, users, votes and
// comments, and streams new votes and comments as they happen. Queries and
// mutations go over HTTP by default; subscriptions always use a WebSocket.
//
//	client, err := dclist.New(host, dclist.WithToken(os.Getenv("DCLIST_TOKEN")))
//	if err != nil {
//		return err
//	}
//	bot, err := client.GetBotByID(ctx, 0) // 0 means this bot
//
// The Host passed to New answers identity and count questions for calls
// that omit them. StaticHost serves bots that know these values up front.
//
// Every error the package raises matches ErrDCList. Rate limiting and
// remote internal errors are logged and returned as *NoResultError, which
// matches ErrNoResult instead; subscriptions end quietly on them.
package dclist
