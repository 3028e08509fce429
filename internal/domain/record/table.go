package record

import (
	"fmt"
	"strings"
)

// Table maps a record type onto its SQL table. Columns lists the
// record-specific columns; Fields must return pointers to the matching struct
// fields in the same order. The Base columns (id, user_id, created_at,
// updated_at) are implied.
type Table[T any] struct {
	Name    string
	Columns []string
	Fields  func(*T) []any
	Base    func(*T) *Base
	// OrderBy defaults to insertion order.
	OrderBy string
}

const defaultOrder = "created_at ASC, id ASC"

func (t Table[T]) order() string {
	if t.OrderBy == "" {
		return defaultOrder
	}
	return t.OrderBy
}

func (t Table[T]) selectColumns() string {
	return "id, user_id, " + strings.Join(t.Columns, ", ") + ", created_at, updated_at"
}

func (t Table[T]) InsertSQL() string {
	n := len(t.Columns) + 4
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, t.selectColumns(), strings.Join(ph, ", "))
}

func (t Table[T]) GetSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 AND user_id = $2", t.selectColumns(), t.Name)
}

// UpdateSQL writes every record column; $1 is the id, $2 the owner.
func (t Table[T]) UpdateSQL() string {
	sets := make([]string, 0, len(t.Columns)+1)
	for i, col := range t.Columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+3))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(t.Columns)+3))
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND user_id = $2", t.Name, strings.Join(sets, ", "))
}

func (t Table[T]) DeleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND user_id = $2", t.Name)
}

func (t Table[T]) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = $1", t.Name)
}

func (t Table[T]) ListSQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY %s LIMIT $2 OFFSET $3",
		t.selectColumns(), t.Name, t.order())
}

// ListBySQL filters on one extra column, unpaginated.
func (t Table[T]) ListBySQL(column string) (string, error) {
	if !t.hasColumn(column) {
		return "", fmt.Errorf("table %s has no column %q", t.Name, column)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 AND %s = $2 ORDER BY %s",
		t.selectColumns(), t.Name, column, t.order()), nil
}

func (t Table[T]) hasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func (t Table[T]) scanDest(v *T) []any {
	b := t.Base(v)
	dest := make([]any, 0, len(t.Columns)+4)
	dest = append(dest, &b.ID, &b.UserID)
	dest = append(dest, t.Fields(v)...)
	return append(dest, &b.CreatedAt, &b.UpdatedAt)
}

func (t Table[T]) insertArgs(v *T) []any {
	return t.scanDest(v)
}

func (t Table[T]) updateArgs(v *T) []any {
	b := t.Base(v)
	args := make([]any, 0, len(t.Columns)+3)
	args = append(args, b.ID, b.UserID)
	args = append(args, t.Fields(v)...)
	return append(args, b.UpdatedAt)
}
