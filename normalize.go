package dclist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/jamesprial/dclist-go/transport"
)

// unmarshalLenient decodes b into v. When strict decoding fails it retries
// once with single quotes swapped for double quotes, which recovers error
// text rendered as a dict literal by some servers and proxies. The strict
// error is returned if both passes fail.
func unmarshalLenient(b []byte, v any) error {
	err := json.Unmarshal(b, v)
	if err == nil {
		return nil
	}
	if bytes.IndexByte(b, '\'') < 0 {
		return err
	}
	if json.Unmarshal(bytes.ReplaceAll(b, []byte("'"), []byte(`"`)), v) == nil {
		return nil
	}
	return err
}

// failure is a remote or transport failure reduced to what classification
// needs.
type failure struct {
	text   string
	code   string
	status int
	body   []byte
	cause  error
}

func failureFromGQL(list gqlerror.List, body []byte) failure {
	first := list[0]
	f := failure{text: first.Message, body: body}
	if code, ok := first.Extensions["code"].(string); ok {
		f.code = code
	}
	return f
}

// failureFromBody accepts a response envelope, a bare error list, a single
// error object, or anything else, which becomes the message verbatim.
func failureFromBody(body []byte) failure {
	var env struct {
		Errors gqlerror.List `json:"errors"`
	}
	if unmarshalLenient(body, &env) == nil && len(env.Errors) > 0 {
		return failureFromGQL(env.Errors, body)
	}

	var list gqlerror.List
	if unmarshalLenient(body, &list) == nil && len(list) > 0 {
		return failureFromGQL(list, body)
	}

	var single gqlerror.Error
	if unmarshalLenient(body, &single) == nil && single.Message != "" {
		return failureFromGQL(gqlerror.List{&single}, body)
	}

	return failure{text: strings.TrimSpace(string(body)), body: body}
}

func failureFromError(err error) failure {
	var terr *transport.Error
	if errors.As(err, &terr) {
		f := failureFromBody(terr.Body)
		if f.text == "" {
			f.text = err.Error()
		}
		f.status = terr.StatusCode
		f.cause = err
		return f
	}
	f := failureFromBody([]byte(err.Error()))
	f.cause = err
	return f
}

func (f failure) rateLimited() bool {
	return f.code == CodeRateLimit || strings.Contains(strings.ToLower(f.text), "rate limit")
}

// classify maps a failure onto the typed error taxonomy.
func classify(f failure) error {
	switch f.code {
	case CodeBadUserInput:
		return &ClientError{Text: f.text, Code: f.code, cause: f.cause}
	case CodeUnauthorized:
		return &UnauthorizedError{HTTPError: f.httpError()}
	}
	if f.status == http.StatusUnauthorized && f.code == "" {
		return &UnauthorizedError{HTTPError: f.httpError()}
	}
	e := f.httpError()
	return &e
}

func (f failure) httpError() HTTPError {
	return HTTPError{Text: f.text, Code: f.code, StatusCode: f.status, Body: f.body, cause: f.cause}
}

// normalizer turns failures into the error a caller sees.
type normalizer struct {
	logger *slog.Logger
}

// handle decides what happens to err. Rate limiting and remote internal
// errors are logged at Warn and come back as *NoResultError; everything
// else is classified and returned for the caller to raise. Context errors
// pass through untouched.
func (n normalizer) handle(ctx context.Context, operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	f := failureFromError(err)
	n.logger.DebugContext(ctx, "operation failed",
		slog.String("operation", operation),
		slog.String("code", f.code),
		slog.String("message", f.text),
	)

	switch {
	case f.rateLimited():
		n.logger.WarnContext(ctx, "being rate limited by dclist.net",
			slog.String("operation", operation),
			slog.String("message", f.text),
		)
		return &NoResultError{Reason: ReasonRateLimited, Text: f.text, Code: f.code}
	case f.code == CodeInternalServer:
		n.logger.WarnContext(ctx, "dclist.net internal error while executing",
			slog.String("operation", operation),
			slog.String("message", f.text),
		)
		return &NoResultError{Reason: ReasonInternalServer, Text: f.text, Code: f.code}
	}
	return classify(f)
}
