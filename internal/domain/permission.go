package domain

// PermissionKind is the action being authorized on a menu
type PermissionKind string

const (
	PermRead   PermissionKind = "READ"
	PermWrite  PermissionKind = "WRITE"
	PermDelete PermissionKind = "DELETE"
)

// MenuPermission is one row of the author/menu grant table, keyed by
// (author_code, menu_no). author_code ≤ 30 chars, menu_no ≤ 7.
type MenuPermission struct {
	AuthorCode string `json:"author_code"`
	MenuNo     string `json:"menu_no"`
	CanRead    bool   `json:"can_read"`
	CanWrite   bool   `json:"can_write"`
	CanDelete  bool   `json:"can_delete"`
	Active     bool   `json:"active"`
}

// Allows reports whether this grant permits the given kind.
// Inactive grants allow nothing.
func (p *MenuPermission) Allows(kind PermissionKind) bool {
	if !p.Active {
		return false
	}
	switch kind {
	case PermRead:
		return p.CanRead
	case PermWrite:
		return p.CanWrite
	case PermDelete:
		return p.CanDelete
	}
	return false
}
