// Package queries holds the GraphQL documents sent to the dclist.net API and
// the field fragments spliced into them.
package queries

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Placeholder names used by the catalog templates.
const (
	FieldsPlaceholder  = "FIELDS"
	VotePlaceholder    = "VOTE_FIELDS"
	CommentPlaceholder = "COMMENT_FIELDS"
)

// Subscription topics accepted by the sdkUpdates subscription.
const (
	TopicNewVote    = "SDK_NEW_VOTE"
	TopicNewComment = "SDK_NEW_COMMENT"
)

var (
	// ErrUnresolvedPlaceholder is returned by Build when a template
	// placeholder has no fragment.
	ErrUnresolvedPlaceholder = errors.New("queries: unresolved placeholder")
	// ErrUnknownPlaceholder is returned by Build when a fragment is supplied
	// for a placeholder the template does not declare.
	ErrUnknownPlaceholder = errors.New("queries: unknown placeholder")
	// ErrMissingVariable is returned by CheckVariables.
	ErrMissingVariable = errors.New("queries: missing variable")
)

// placeholderPattern matches $NAME$ tokens. GraphQL variables ($botId) never
// end in a dollar sign so they do not match.
var placeholderPattern = regexp.MustCompile(`\$([A-Z][A-Z_]*)\$`)

// Operation is a named document template with the variables it requires.
type Operation struct {
	Name      string
	Template  string
	Variables []string
}

// Placeholders returns the distinct placeholder names in the template, sorted.
func (op Operation) Placeholders() []string {
	return placeholdersIn(op.Template)
}

// CheckVariables reports the first required variable absent from vars.
func (op Operation) CheckVariables(vars map[string]any) error {
	for _, name := range op.Variables {
		if _, ok := vars[name]; !ok {
			return fmt.Errorf("%w: %s requires $%s", ErrMissingVariable, op.Name, name)
		}
	}
	return nil
}

func placeholdersIn(s string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	slices.Sort(names)
	return names
}

// Document is an operation with every placeholder resolved.
type Document struct {
	Name string
	Kind ast.Operation
	Text string
}

// Build splices fragments into op's placeholders and parses the result.
// fragments is keyed by placeholder name without the surrounding dollars.
// Every declared placeholder must be supplied, and nothing else may be.
func Build(op Operation, fragments map[string]string) (*Document, error) {
	declared := op.Placeholders()
	for name := range fragments {
		if !slices.Contains(declared, name) {
			return nil, fmt.Errorf("%w: %s has no $%s$", ErrUnknownPlaceholder, op.Name, name)
		}
	}

	text := op.Template
	for _, name := range declared {
		frag, ok := fragments[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s needs $%s$", ErrUnresolvedPlaceholder, op.Name, name)
		}
		text = strings.ReplaceAll(text, "$"+name+"$", frag)
	}
	// A fragment could itself carry a token.
	if left := placeholdersIn(text); len(left) > 0 {
		return nil, fmt.Errorf("%w: %s still has $%s$", ErrUnresolvedPlaceholder, op.Name, left[0])
	}

	doc, err := parser.ParseQuery(&ast.Source{Name: op.Name, Input: text})
	if err != nil {
		return nil, fmt.Errorf("queries: parse %s: %w", op.Name, err)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("queries: %s: expected one operation, got %d", op.Name, len(doc.Operations))
	}

	return &Document{
		Name: doc.Operations[0].Name,
		Kind: doc.Operations[0].Operation,
		Text: text,
	}, nil
}
