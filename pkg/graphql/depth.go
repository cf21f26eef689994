package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth bounds Reference.target / Node.references nesting.
const DefaultMaxDepth = 8

// queryDepth returns the deepest object selection of document. Leaf
// selections and introspection fields do not count. Fragment spreads are
// followed once; a spread of an unknown or recursive fragment counts as a
// single level.
func queryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, def := range document.Definitions {
		if f, ok := def.(*ast.FragmentDefinition); ok {
			fragments[f.Name.Value] = f
		}
	}

	deepest := 0
	for _, def := range document.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			deepest = max(deepest, selectionDepth(op.SelectionSet, 0, fragments, map[string]bool{}))
		}
	}
	return deepest
}

func selectionDepth(set *ast.SelectionSet, depth int, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) int {
	if set == nil {
		return depth
	}
	deepest := depth
	for _, sel := range set.Selections {
		switch s := sel.(type) {
		case *ast.Field:
			if strings.HasPrefix(s.Name.Value, "__") || s.SelectionSet == nil {
				continue
			}
			deepest = max(deepest, selectionDepth(s.SelectionSet, depth+1, fragments, visiting))
		case *ast.InlineFragment:
			deepest = max(deepest, selectionDepth(s.SelectionSet, depth, fragments, visiting))
		case *ast.FragmentSpread:
			name := s.Name.Value
			f, ok := fragments[name]
			if !ok || visiting[name] {
				deepest = max(deepest, depth+1)
				continue
			}
			visiting[name] = true
			deepest = max(deepest, selectionDepth(f.SelectionSet, depth, fragments, visiting))
			delete(visiting, name)
		}
	}
	return deepest
}

// ValidateQueryDepth parses query and rejects it when its depth exceeds
// maxDepth.
func ValidateQueryDepth(query string, maxDepth int) error {
	document, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}
	if depth := queryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}
