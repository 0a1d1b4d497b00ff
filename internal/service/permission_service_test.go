package service

import (
	"context"
	"testing"
	"time"

	"github.com/moon4656/skyboot-core/internal/domain"
)

// MockPermissionStore is a map-backed PermissionStore
type MockPermissionStore struct {
	grants map[string][]domain.MenuPermission
}

func NewMockPermissionStore() *MockPermissionStore {
	return &MockPermissionStore{grants: make(map[string][]domain.MenuPermission)}
}

func (m *MockPermissionStore) Add(p domain.MenuPermission) {
	m.grants[p.AuthorCode] = append(m.grants[p.AuthorCode], p)
}

func (m *MockPermissionStore) PermissionsFor(ctx context.Context, authorCode string) ([]domain.MenuPermission, error) {
	var out []domain.MenuPermission
	for _, p := range m.grants[authorCode] {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPermissionStore) Check(ctx context.Context, authorCode, menuNo string, kind domain.PermissionKind) (bool, error) {
	for _, p := range m.grants[authorCode] {
		if p.MenuNo == menuNo && p.Allows(kind) {
			return true, nil
		}
	}
	return false, nil
}

func sessionFor(groupID string) *domain.SessionClaims {
	return &domain.SessionClaims{
		UserID:          "admin01",
		GroupID:         groupID,
		AuthenticatedAt: time.Now(),
	}
}

func TestPermissionService_Allow(t *testing.T) {
	store := NewMockPermissionStore()
	store.Add(domain.MenuPermission{
		AuthorCode: "GRP001", MenuNo: "MNU0001",
		CanRead: true, CanWrite: true, CanDelete: false, Active: true,
	})
	store.Add(domain.MenuPermission{
		AuthorCode: "GRP001", MenuNo: "MNU0002",
		CanRead: true, CanWrite: true, CanDelete: true, Active: false,
	})
	svc := NewPermissionService(store)
	ctx := context.Background()

	tests := []struct {
		name    string
		session *domain.SessionClaims
		menuNo  string
		kind    domain.PermissionKind
		want    bool
	}{
		{"granted read", sessionFor("GRP001"), "MNU0001", domain.PermRead, true},
		{"granted write", sessionFor("GRP001"), "MNU0001", domain.PermWrite, true},
		{"denied delete", sessionFor("GRP001"), "MNU0001", domain.PermDelete, false},
		{"inactive grant denies everything", sessionFor("GRP001"), "MNU0002", domain.PermRead, false},
		{"unknown menu", sessionFor("GRP001"), "MNU9999", domain.PermRead, false},
		{"unknown group", sessionFor("GRP999"), "MNU0001", domain.PermRead, false},
		{"empty group", sessionFor(""), "MNU0001", domain.PermRead, false},
		{"nil session", nil, "MNU0001", domain.PermRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Allow(ctx, tt.session, tt.menuNo, tt.kind)
			if err != nil {
				t.Fatalf("Allow: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allow = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermissionService_List(t *testing.T) {
	store := NewMockPermissionStore()
	store.Add(domain.MenuPermission{AuthorCode: "GRP001", MenuNo: "MNU0001", CanRead: true, Active: true})
	store.Add(domain.MenuPermission{AuthorCode: "GRP001", MenuNo: "MNU0002", CanRead: true, Active: false})
	store.Add(domain.MenuPermission{AuthorCode: "GRP002", MenuNo: "MNU0003", CanRead: true, Active: true})
	svc := NewPermissionService(store)
	ctx := context.Background()

	got, err := svc.List(ctx, sessionFor("GRP001"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (inactive and foreign grants excluded)", len(got))
	}
	if got[0].MenuNo != "MNU0001" {
		t.Errorf("menu_no = %q", got[0].MenuNo)
	}

	empty, err := svc.List(ctx, sessionFor(""))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("groupless session listed %d grants", len(empty))
	}
}
