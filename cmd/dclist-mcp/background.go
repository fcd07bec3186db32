package main

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	dclist "github.com/jamesprial/dclist-go"
)

type statsPoster interface {
	PostStats(ctx context.Context, opts ...dclist.StatsOption) (bool, error)
}

type updateSource interface {
	SubscribeToUpdates(ctx context.Context) iter.Seq2[*dclist.Update, error]
}

// postStatsLoop posts stats once immediately and then every interval until
// ctx is done. Failures are logged and retried on the next tick.
func postStatsLoop(ctx context.Context, client statsPoster, interval time.Duration, shards int, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		posted, err := client.PostStats(ctx, dclist.WithShardCount(shards))
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, dclist.ErrNoResult):
			logger.WarnContext(ctx, "stats not posted, will retry", slog.Any("error", err))
		case err != nil:
			logger.ErrorContext(ctx, "post stats failed", slog.Any("error", err))
		case posted:
			logger.InfoContext(ctx, "posted stats to dclist.net")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// watchUpdates logs every vote and comment pushed by dclist.net. When the
// subscription ends it is reopened after retry, until ctx is done.
func watchUpdates(ctx context.Context, client updateSource, retry time.Duration, logger *slog.Logger) {
	for {
		for u, err := range client.SubscribeToUpdates(ctx) {
			if err != nil {
				if ctx.Err() == nil {
					logger.ErrorContext(ctx, "update subscription failed", slog.Any("error", err))
				}
				break
			}
			logUpdate(ctx, logger, u)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func logUpdate(ctx context.Context, logger *slog.Logger, u *dclist.Update) {
	switch u.Kind() {
	case dclist.UpdateVote:
		logger.InfoContext(ctx, "new vote",
			slog.String("user_id", u.User.ID.String()),
			slog.String("username", u.User.Username),
		)
	case dclist.UpdateComment:
		attrs := []any{slog.String("content", u.Comment.Content), slog.Bool("like", u.Comment.Like)}
		if u.Comment.Author != nil {
			attrs = append(attrs, slog.String("author", u.Comment.Author.Username))
		}
		logger.InfoContext(ctx, "new comment", attrs...)
	default:
		logger.DebugContext(ctx, "unrecognised update", slog.String("typename", u.Typename))
	}
}
