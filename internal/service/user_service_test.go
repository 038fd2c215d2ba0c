package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cinevault/cinevault-api/internal/models"
	appErrors "github.com/cinevault/cinevault-api/pkg/errors"
)

type mockUserMgmtRepo struct {
	byID       map[string]*models.User
	byMobile   map[string]*models.User
	listResult []models.User
	listTotal  int
	lastFilter models.UserFilter
	deviceSet  map[string]string
	deleted    []string
}

func newMockUserMgmtRepo() *mockUserMgmtRepo {
	return &mockUserMgmtRepo{
		byID:      make(map[string]*models.User),
		byMobile:  make(map[string]*models.User),
		deviceSet: make(map[string]string),
	}
}

func (m *mockUserMgmtRepo) add(user *models.User) {
	m.byID[user.ID] = user
	if user.MobileNumber != "" {
		m.byMobile[user.MobileNumber] = user
	}
}

func (m *mockUserMgmtRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	return m.listResult, m.listTotal, nil
}

func (m *mockUserMgmtRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserMgmtRepo) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	if user, ok := m.byMobile[mobile]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserMgmtRepo) Update(ctx context.Context, user *models.User) error {
	m.add(user)
	return nil
}

func (m *mockUserMgmtRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	user, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Role = role
	return nil
}

func (m *mockUserMgmtRepo) SetDeviceToken(ctx context.Context, id, token string, notificationEnabled bool) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	m.deviceSet[id] = token
	return nil
}

func (m *mockUserMgmtRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newTestUserService(repo *mockUserMgmtRepo) *UserService {
	return NewUserService(repo, nil, zap.NewNop())
}

func testUser(id string) *models.User {
	return &models.User{
		ID:           id,
		Email:        id + "@example.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		MobileNumber: "9876543210",
		Role:         models.RoleUser,
	}
}

func TestUserServiceListPagination(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.listTotal = 12
	repo.listResult = []models.User{*testUser("u1"), *testUser("u2")}
	svc := newTestUserService(repo)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 12, pagination.TotalCount)
	assert.Equal(t, 6, pagination.TotalPages)
	assert.Equal(t, 2, repo.lastFilter.Page)
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := newTestUserService(newMockUserMgmtRepo())

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateProfilePartial(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	name := "Grace"
	updated, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "9876543210", updated.MobileNumber)
}

func TestUserServiceUpdateProfileBlankFirstName(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	blank := "   "
	_, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{FirstName: &blank})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Contains(t, appErr.Details, "first_name cannot be blank")
}

func TestUserServiceUpdateProfileMobileTaken(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	other := testUser("u2")
	other.MobileNumber = "1234567890"
	repo.add(other)
	svc := newTestUserService(repo)

	taken := "1234567890"
	_, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{MobileNumber: &taken})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Contains(t, appErr.Details, "mobile_number has already been taken")
}

func TestUserServiceUpdateProfileInvalidMobileFormat(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	short := "12345"
	_, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{MobileNumber: &short})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestUserServiceUpdateRole(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	updated, err := svc.UpdateRole(context.Background(), "u1", models.UpdateRoleRequest{Role: models.RoleSupervisor})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupervisor, updated.Role)
}

func TestUserServiceUpdateRoleRejectsUnknownRole(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	_, err := svc.UpdateRole(context.Background(), "u1", models.UpdateRoleRequest{Role: models.UserRole("owner")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Contains(t, appErr.Details, "role must be one of: user, supervisor, admin")
	assert.Equal(t, models.RoleUser, repo.byID["u1"].Role)
}

func TestUserServiceRegisterDevice(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	err := svc.RegisterDevice(context.Background(), "u1", models.DeviceRequest{DeviceToken: "fcm-token-1"})
	require.NoError(t, err)
	assert.Equal(t, "fcm-token-1", repo.deviceSet["u1"])
}

func TestUserServiceRegisterDeviceRequiresToken(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	err := svc.RegisterDevice(context.Background(), "u1", models.DeviceRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.deviceSet)
}

func TestUserServiceDelete(t *testing.T) {
	repo := newMockUserMgmtRepo()
	repo.add(testUser("u1"))
	svc := newTestUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "u1"))
	assert.Contains(t, repo.deleted, "u1")

	err := svc.Delete(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
