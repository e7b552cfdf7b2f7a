package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause builds an ORDER BY clause from orderings whose field is in `columns`
// (json field -> column). Unknown fields are ignored. Returns `def` when nothing is left.
func OrderByClause(orderings []DBOrdering, columns map[string]string, def string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
