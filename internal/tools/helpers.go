package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mark3labs/mcp-go/mcp"

	dclist "github.com/jamesprial/dclist-go"
)

// JSONResult marshals v to indented JSON and returns an mcp.CallToolResult.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("error marshaling result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult reports err to the model with a hint on what to do next.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("error: " + describe(err))
}

func describe(err error) string {
	var (
		clientErr *dclist.ClientError
		authErr   *dclist.UnauthorizedError
	)
	switch {
	case errors.Is(err, dclist.ErrNoResult):
		return err.Error() + " (try again later)"
	case errors.As(err, &clientErr):
		return "invalid request: " + clientErr.Text
	case errors.As(err, &authErr):
		return "dclist.net rejected the API token: " + authErr.Text
	case errors.Is(err, dclist.ErrNoHost):
		return "no id given and the server has no bot identity configured"
	default:
		return err.Error()
	}
}

// auditResult is the result column written for err.
func auditResult(err error) string {
	if err == nil {
		return "ok"
	}
	return "error: " + err.Error()
}

// LogAudit logs a tool invocation to the audit logger, silently ignoring a nil logger.
func LogAudit(audit *AuditLogger, toolName string, params map[string]any, result string, start time.Time) {
	if audit == nil {
		return
	}
	_ = audit.Log(AuditEntry{
		Timestamp: start,
		Tool:      toolName,
		Params:    params,
		Result:    result,
		Duration:  time.Since(start),
	})
}

// snowflakeArg reads an optional snowflake argument. A missing or empty value
// is zero.
func snowflakeArg(req mcp.CallToolRequest, name string) (snowflake.ID, error) {
	s := strings.TrimSpace(req.GetString(name, ""))
	if s == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(s)
	if err != nil {
		return 0, &dclist.ClientError{Text: fmt.Sprintf("%s must be a Discord id, got %q", name, s)}
	}
	return id, nil
}
