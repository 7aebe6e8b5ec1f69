package db

import (
	"strconv"
	"strings"
)

// UpdateSet accumulates SET clauses for partial updates so only dirty
// columns are written.
type UpdateSet struct {
	sets []string
	args []any
}

// Set assigns a value to column.
func (u *UpdateSet) Set(column string, value any) {
	u.args = append(u.args, value)
	u.sets = append(u.sets, column+" = $"+strconv.Itoa(len(u.args)))
}

// SetNull clears column.
func (u *UpdateSet) SetNull(column string) {
	u.sets = append(u.sets, column+" = NULL")
}

// Len returns the number of assignments.
func (u *UpdateSet) Len() int {
	return len(u.sets)
}

// Build renders "UPDATE table SET ... WHERE id = $n AND owner_id = $m" with
// updated_at bumped and the full argument list.
func (u *UpdateSet) Build(table string, id int64, ownerID string, returning string) (string, []any) {
	sets := append([]string{}, u.sets...)
	sets = append(sets, "updated_at = now()")
	args := append([]any{}, u.args...)
	args = append(args, id, ownerID)
	idPos := strconv.Itoa(len(args) - 1)
	ownerPos := strconv.Itoa(len(args))
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(table)
	b.WriteString(" SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" WHERE id = $" + idPos + " AND owner_id = $" + ownerPos)
	if returning != "" {
		b.WriteString(" RETURNING ")
		b.WriteString(returning)
	}
	return b.String(), args
}
