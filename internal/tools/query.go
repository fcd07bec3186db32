package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/jamesprial/dclist-go/transport"
)

const toolGraphQLQuery = "dclist_graphql_query"

// Executor runs a raw GraphQL request. Both transport bindings satisfy it.
type Executor interface {
	Execute(ctx context.Context, req transport.Request) ([]byte, error)
}

var (
	_ Executor = (*transport.HTTP)(nil)
	_ Executor = (*transport.WebSocket)(nil)
)

// GraphQLQueryTool returns the escape hatch for operations the typed tools
// do not cover. Subscriptions are refused.
func GraphQLQueryTool(exec Executor, audit *AuditLogger) Registration {
	tool := mcp.NewTool(toolGraphQLQuery,
		mcp.WithDescription("Execute a raw GraphQL query or mutation against the dclist.net API. Use only when the other dclist tools cannot answer. "+
			"The response, including any GraphQL errors, is returned as received: rate limits and other API errors are not interpreted, and the call is not counted in the client metrics."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The GraphQL document. It must contain exactly one query or mutation."),
		),
		mcp.WithString("variables",
			mcp.Description("Optional JSON object of variables."),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		query := req.GetString("query", "")
		variablesStr := req.GetString("variables", "")
		params := map[string]any{"query": query, "variables": variablesStr}

		fail := func(msg string) (*mcp.CallToolResult, error) {
			LogAudit(audit, toolGraphQLQuery, params, "error: "+msg, start)
			return mcp.NewToolResultError("error: " + msg), nil
		}

		op, err := parseOperation(query)
		if err != nil {
			return fail(err.Error())
		}

		var vars map[string]any
		if variablesStr != "" {
			if err := json.Unmarshal([]byte(variablesStr), &vars); err != nil {
				return fail(fmt.Sprintf("parse variables JSON: %v", err))
			}
		}

		raw, err := exec.Execute(ctx, transport.Request{
			Query:         query,
			OperationName: op.Name,
			Variables:     vars,
			Kind:          op.Operation,
		})
		if err != nil {
			return fail(err.Error())
		}

		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fail(fmt.Sprintf("decode response: %v", err))
		}
		LogAudit(audit, toolGraphQLQuery, params, "ok", start)
		return JSONResult(parsed), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func parseOperation(query string) (*ast.OperationDefinition, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: toolGraphQLQuery, Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("query must contain exactly one operation, got %d", len(doc.Operations))
	}
	op := doc.Operations[0]
	if op.Operation == ast.Subscription {
		return nil, fmt.Errorf("subscriptions are not supported by this tool")
	}
	return op, nil
}
