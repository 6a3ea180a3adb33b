package utils

import (
	"fmt"
	"strings"
)

// JoinWithAnd joins a slice of strings with AND operator
func JoinWithAnd(clauses []string) string {
	return strings.Join(clauses, " AND ")
}

// Args collects positional query arguments and hands out $n placeholders.
type Args struct {
	values []any
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

func (a *Args) Values() []any {
	return a.values
}

// Where renders " WHERE c1 AND c2" or "" when there are no clauses.
func Where(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + JoinWithAnd(clauses)
}
