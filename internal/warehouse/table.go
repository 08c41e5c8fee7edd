package warehouse

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTableID = errors.New("invalid table identifier")

// TableID is a fully-qualified warehouse table.
type TableID struct {
	Project string
	Dataset string
	Table   string
}

// ParseTableID accepts "project.dataset.table" and the legacy "project:dataset.table".
// Domain-scoped projects such as "example.com:project.dataset.table" are kept whole.
func ParseTableID(s string) (TableID, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n`") {
		return TableID{}, fmt.Errorf("%w: %q", ErrInvalidTableID, s)
	}

	var id TableID
	parts := strings.Split(s, ".")
	switch {
	case len(parts) == 2 && strings.Contains(parts[0], ":"):
		i := strings.LastIndex(parts[0], ":")
		id = TableID{Project: parts[0][:i], Dataset: parts[0][i+1:], Table: parts[1]}
	case len(parts) >= 3:
		n := len(parts)
		id = TableID{Project: strings.Join(parts[:n-2], "."), Dataset: parts[n-2], Table: parts[n-1]}
	default:
		return TableID{}, fmt.Errorf("%w: %q is not project.dataset.table", ErrInvalidTableID, s)
	}

	if id.Project == "" || id.Dataset == "" || id.Table == "" {
		return TableID{}, fmt.Errorf("%w: %q has an empty part", ErrInvalidTableID, s)
	}
	return id, nil
}

func (t TableID) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}
