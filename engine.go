package dclist

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/jamesprial/dclist-go/internal/queries"
	"github.com/jamesprial/dclist-go/transport"
)

// envelope is the decoded "data" object of a GraphQL response, keyed by
// top-level field.
type envelope map[string]json.RawMessage

// call is one operation with its fragments and variables.
type call struct {
	op        queries.Operation
	fragments map[string]string
	vars      map[string]any
}

// engine runs calls against the configured transports.
type engine struct {
	http    transport.Transport
	ws      transport.Transport
	forceWS bool
	logger  *slog.Logger
	norm    normalizer
	metrics *metrics
}

func (e *engine) build(c call) (transport.Request, error) {
	if err := c.op.CheckVariables(c.vars); err != nil {
		return transport.Request{}, &ClientError{Text: err.Error(), cause: err}
	}
	doc, err := queries.Build(c.op, c.fragments)
	if err != nil {
		return transport.Request{}, &ClientError{Text: err.Error(), cause: err}
	}
	return transport.Request{
		Query:         doc.Text,
		OperationName: doc.Name,
		Variables:     c.vars,
		Kind:          doc.Kind,
	}, nil
}

// execute runs a query or mutation and returns its data envelope. Failures
// are normalized; a downgraded failure comes back as *NoResultError.
func (e *engine) execute(ctx context.Context, c call) (envelope, error) {
	start := time.Now()
	data, err := e.executeOnce(ctx, c)
	e.metrics.observe(c.op.Name, err, start)
	return data, err
}

func (e *engine) executeOnce(ctx context.Context, c call) (envelope, error) {
	req, err := e.build(c)
	if err != nil {
		return nil, err
	}

	t := e.http
	if e.forceWS {
		t = e.ws
	}

	e.logger.DebugContext(ctx, "executing operation",
		slog.String("operation", c.op.Name),
		slog.String("kind", string(req.Kind)),
	)
	raw, err := t.Execute(ctx, req)
	if err != nil {
		return nil, e.norm.handle(ctx, c.op.Name, err)
	}
	e.logger.DebugContext(ctx, "raw response",
		slog.String("operation", c.op.Name),
		slog.String("body", truncate(string(raw), 512)),
	)

	data, err := decodeResponse(raw)
	if err != nil {
		return nil, e.norm.handle(ctx, c.op.Name, err)
	}
	return data, nil
}

// subscribe runs a subscription and yields each data envelope in the order
// received. A failure ends the sequence: raised failures are yielded once,
// downgraded ones end it silently. The underlying stream is closed when the
// sequence ends or the consumer stops iterating.
func (e *engine) subscribe(ctx context.Context, c call) iter.Seq2[envelope, error] {
	return func(yield func(envelope, error) bool) {
		start := time.Now()
		var final error
		defer func() { e.metrics.observe(c.op.Name, final, start) }()

		fail := func(err error) {
			final = e.norm.handle(ctx, c.op.Name, err)
			if !errors.Is(final, ErrNoResult) {
				yield(nil, final)
			}
		}

		req, err := e.build(c)
		if err != nil {
			final = err
			yield(nil, err)
			return
		}

		e.logger.DebugContext(ctx, "subscribing", slog.String("operation", c.op.Name))
		stream, err := e.ws.Subscribe(ctx, req)
		if err != nil {
			fail(err)
			return
		}
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			raw := stream.Payload()
			e.logger.DebugContext(ctx, "raw update",
				slog.String("operation", c.op.Name),
				slog.String("body", truncate(string(raw), 512)),
			)
			data, err := decodeResponse(raw)
			if err != nil {
				fail(err)
				return
			}
			e.metrics.update()
			if !yield(data, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			fail(err)
		}
	}
}

// decodeResponse unwraps the data object of a GraphQL response body. A body
// carrying errors, or one that does not decode even leniently, comes back as
// a *transport.Error so it is normalized like any other remote failure.
func decodeResponse(raw []byte) (envelope, error) {
	var resp struct {
		Data   envelope      `json:"data"`
		Errors gqlerror.List `json:"errors"`
	}
	if err := unmarshalLenient(raw, &resp); err != nil {
		return nil, &transport.Error{Body: raw}
	}
	if len(resp.Errors) > 0 {
		return nil, &transport.Error{Body: raw}
	}
	if resp.Data == nil {
		return envelope{}, nil
	}
	return resp.Data, nil
}

// unwrap decodes the named field of data into a T.
func unwrap[T any](data envelope, field string) (T, error) {
	var v T
	raw, ok := data[field]
	if !ok {
		return v, &HTTPError{Text: "response is missing field " + field}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &HTTPError{Text: "decode " + field + ": " + err.Error(), Body: raw, cause: err}
	}
	return v, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
