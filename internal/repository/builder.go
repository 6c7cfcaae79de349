package repository

import "strings"

// clauseList accumulates typed predicates as clause/argument pairs so the
// count query and the page query always render from one predicate set.
type clauseList struct {
	clauses []string
	args    []any
}

func (c *clauseList) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

// where renders the combined condition with a leading " WHERE ", or an empty
// string when no predicate was added. The returned args match the rendered
// placeholders in order.
func (c *clauseList) where() (string, []any) {
	if len(c.clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(c.clauses, " AND "), c.args
}
