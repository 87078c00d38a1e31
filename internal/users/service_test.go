package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/testutil"
)

type mockStore struct {
	users     map[string]*models.User
	nextID    int
	listCalls int
}

func newMockStore() *mockStore {
	return &mockStore{users: map[string]*models.User{}}
}

func (m *mockStore) ListAll(_ context.Context) ([]models.User, error) {
	m.listCalls++
	out := []models.User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nama < out[j].Nama })
	return out, nil
}

func (m *mockStore) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) Create(_ context.Context, p models.CreateUserParams) (*models.User, error) {
	for _, u := range m.users {
		if u.NIP == p.NIP {
			return nil, fmt.Errorf("create: %w", database.ErrDuplicate)
		}
	}
	m.nextID++
	u := &models.User{
		ID:           fmt.Sprintf("u-%d", m.nextID),
		NIP:          p.NIP,
		Nama:         p.Nama,
		Jabatan:      p.Jabatan,
		Role:         p.Role,
		Status:       models.UserStatusActive,
		PasswordHash: p.Password,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *mockStore) Update(_ context.Context, id string, p models.UpdateUserParams) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if p.Nama != nil {
		u.Nama = *p.Nama
	}
	if p.Jabatan != nil {
		u.Jabatan = *p.Jabatan
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Password != nil {
		u.PasswordHash = *p.Password
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.Status = models.UserStatusDisabled
	return nil
}

func (m *mockStore) CountAdmins(_ context.Context) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.Role == models.RoleAdmin && u.IsActive() {
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *mockStore) {
	t.Helper()
	logger := testutil.NullLogger()
	store := cache.NewMemory(logger)
	loader := cache.NewLoader(store)
	inv := cache.NewInvalidator(store, logger).WithLoader(loader)
	ms := newMockStore()
	return NewService(ms, loader, inv, 300, bcrypt.MinCost, logger), ms
}

func nip(n int) string {
	return fmt.Sprintf("1985%014d", n)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %v", err)
	assert.Equal(t, code, svcErr.Code)
}

func TestService_Create(t *testing.T) {
	svc, ms := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, models.CreateUserParams{
		NIP:      "1985 0101 201001 1 001",
		Nama:     "  budi   santoso, S.Kom ",
		Password: "rahasia123",
	})
	require.NoError(t, err)

	assert.Equal(t, "198501012010011001", u.NIP)
	assert.Equal(t, "Budi Santoso, S.Kom", u.Nama)
	assert.Equal(t, models.RoleOperator, u.Role)
	assert.Empty(t, u.PasswordHash)

	stored := ms.users[u.ID]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("rahasia123")))
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		params models.CreateUserParams
	}{
		{"short nip", models.CreateUserParams{NIP: "12345", Nama: "A", Password: "rahasia123"}},
		{"missing nama", models.CreateUserParams{NIP: nip(1), Password: "rahasia123"}},
		{"bad role", models.CreateUserParams{NIP: nip(1), Nama: "A", Role: "root", Password: "rahasia123"}},
		{"short password", models.CreateUserParams{NIP: nip(1), Nama: "A", Password: "pendek"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			_, err := svc.Create(context.Background(), tt.params)
			assertCode(t, err, CodeInvalidInput)
		})
	}
}

func TestService_CreateDuplicateNIP(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Password: "rahasia123"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Budi", Password: "rahasia123"})
	assertCode(t, err, CodeConflict)
}

func TestService_ListFiltersAndCaches(t *testing.T) {
	svc, ms := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani Lestari", Role: models.RoleAdmin, Password: "rahasia123"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.CreateUserParams{NIP: nip(2), Nama: "Budi Santoso", Password: "rahasia123"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.CreateUserParams{NIP: nip(3), Nama: "Citra Dewi", Role: models.RolePimpinan, Password: "rahasia123"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, models.UserFilterParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalCount)
	for _, u := range resp.Users {
		assert.Empty(t, u.PasswordHash)
	}

	resp, err = svc.List(ctx, models.UserFilterParams{Role: models.RolePimpinan})
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "Citra Dewi", resp.Users[0].Nama)

	resp, err = svc.List(ctx, models.UserFilterParams{Query: "SANTOSO"})
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)

	resp, err = svc.List(ctx, models.UserFilterParams{Query: nip(1)[10:]})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalCount)

	assert.Equal(t, 1, ms.listCalls)
}

func TestService_CachedHashesStayIntact(t *testing.T) {
	svc, ms := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Password: "rahasia123"})
	require.NoError(t, err)

	_, err = svc.List(ctx, models.UserFilterParams{})
	require.NoError(t, err)

	cached, ok := cache.GetAs[[]models.User](svc.loader.Store(), cache.KeyUsers)
	require.True(t, ok)
	require.Len(t, cached, 1)
	assert.NotEmpty(t, cached[0].PasswordHash)
	assert.Equal(t, 1, ms.listCalls)
}

func TestService_UpdateSelfRoleForbidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Role: models.RoleAdmin, Password: "rahasia123"})
	require.NoError(t, err)

	role := models.RoleOperator
	_, err = svc.Update(ctx, admin.ID, admin.ID, models.UpdateUserParams{Role: &role})
	assertCode(t, err, CodeForbidden)

	nama := "ani lestari"
	u, err := svc.Update(ctx, admin.ID, admin.ID, models.UpdateUserParams{Nama: &nama})
	require.NoError(t, err)
	assert.Equal(t, "Ani Lestari", u.Nama)
}

func TestService_LastAdminProtected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Role: models.RoleAdmin, Password: "rahasia123"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(2), Nama: "Budi", Role: models.RoleAdmin, Password: "rahasia123"})
	require.NoError(t, err)

	disabled := models.UserStatusDisabled
	_, err = svc.Update(ctx, admin.ID, other.ID, models.UpdateUserParams{Status: &disabled})
	require.NoError(t, err)

	// other is now disabled, so admin is the only active admin left
	err = svc.Delete(ctx, other.ID, admin.ID)
	assertCode(t, err, CodeConflict)
}

func TestService_DeleteSelfForbidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Password: "rahasia123"})
	require.NoError(t, err)

	err = svc.Delete(ctx, u.ID, u.ID)
	assertCode(t, err, CodeForbidden)
}

func TestService_DeleteInvalidatesList(t *testing.T) {
	svc, ms := newTestService(t)
	ctx := context.Background()

	admin, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Role: models.RoleAdmin, Password: "rahasia123"})
	require.NoError(t, err)
	op, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(2), Nama: "Budi", Password: "rahasia123"})
	require.NoError(t, err)

	_, err = svc.List(ctx, models.UserFilterParams{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin.ID, op.ID))

	resp, err := svc.List(ctx, models.UserFilterParams{Status: models.UserStatusDisabled})
	require.NoError(t, err)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, op.ID, resp.Users[0].ID)
	assert.Equal(t, 2, ms.listCalls)

	err = svc.Delete(ctx, admin.ID, "missing")
	assertCode(t, err, CodeNotFound)
}

func TestService_ResetPassword(t *testing.T) {
	svc, ms := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, models.CreateUserParams{NIP: nip(1), Nama: "Ani", Password: "rahasia123"})
	require.NoError(t, err)

	assertCode(t, svc.ResetPassword(ctx, u.ID, "short"), CodeInvalidInput)
	require.NoError(t, svc.ResetPassword(ctx, u.ID, "barupassword"))

	hash := ms.users[u.ID].PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("barupassword")))
	assert.False(t, strings.Contains(hash, "barupassword"))

	assertCode(t, svc.ResetPassword(ctx, "missing", "barupassword"), CodeNotFound)
}
