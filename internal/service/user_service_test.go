package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"crms/internal/model"
	"crms/pkg/apperror"
)

func setupTestUserService() (UserService, *mockUserRepo, *mockAuditRepo) {
	repo := newMockUserRepo()
	audit := &mockAuditRepo{}
	return NewUserService(repo, NewAuditSink(audit, zap.NewNop()), zap.NewNop()), repo, audit
}

var adminActor = Actor{UserID: 1, Role: model.RoleSystemAdmin}

func TestUserService_CreateUser(t *testing.T) {
	svc, repo, audit := setupTestUserService()
	ctx := context.Background()

	resp, err := svc.CreateUser(ctx, adminActor, CreateUserRequest{
		Username: "buyer", Email: "Buyer@CRMS.test", Password: "password123", Role: model.RoleProcurementOfficer,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if resp.Email != "buyer@crms.test" || !resp.IsActive {
		t.Errorf("unexpected response %+v", resp)
	}

	stored, _ := repo.GetByID(ctx, resp.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")) != nil {
		t.Error("password must be stored as a bcrypt hash")
	}
	if actions := audit.actions(); len(actions) != 1 || actions[0] != model.ActionCreateUser {
		t.Errorf("unexpected audit trail %v", actions)
	}

	_, err = svc.CreateUser(ctx, adminActor, CreateUserRequest{
		Username: "buyer", Email: "other@crms.test", Password: "password123", Role: model.RoleProcurementOfficer,
	})
	assertKind(t, err, apperror.KindConflict)
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	svc, _, _ := setupTestUserService()

	tests := []struct {
		name string
		req  CreateUserRequest
	}{
		{"bad role", CreateUserRequest{Username: "a", Email: "a@crms.test", Password: "password123", Role: "ACCOUNTANT"}},
		{"bad email", CreateUserRequest{Username: "a", Email: "not-an-email", Password: "password123", Role: model.RoleSiteSupervisor}},
		{"short password", CreateUserRequest{Username: "a", Email: "a@crms.test", Password: "short", Role: model.RoleSiteSupervisor}},
		{"blank username", CreateUserRequest{Username: " ", Email: "a@crms.test", Password: "password123", Role: model.RoleSiteSupervisor}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), adminActor, tt.req)
			assertKind(t, err, apperror.KindValidation)
		})
	}
}

func TestUserService_SelfProtection(t *testing.T) {
	svc, repo, _ := setupTestUserService()
	ctx := context.Background()
	repo.add(&model.User{ID: adminActor.UserID, Username: "root", Email: "root@crms.test", Role: model.RoleSystemAdmin, IsActive: true})

	_, err := svc.UpdateUser(ctx, adminActor, adminActor.UserID, UpdateUserRequest{Role: model.RoleFinanceOfficer})
	assertKind(t, err, apperror.KindForbidden)

	_, err = svc.UpdateUser(ctx, adminActor, adminActor.UserID, UpdateUserRequest{IsActive: ptr(false)})
	assertKind(t, err, apperror.KindForbidden)

	err = svc.DeleteUser(ctx, adminActor, adminActor.UserID)
	assertKind(t, err, apperror.KindForbidden)

	err = svc.DeleteUser(ctx, adminActor, 404)
	assertKind(t, err, apperror.KindNotFound)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	svc, repo, _ := setupTestUserService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "", ""); err != nil {
		t.Fatalf("empty config disables seeding: %v", err)
	}
	if len(repo.users) != 0 {
		t.Fatal("nothing should be seeded")
	}

	for i := 0; i < 2; i++ {
		if err := svc.EnsureAdmin(ctx, "Admin@CRMS.test", "change-me-now"); err != nil {
			t.Fatalf("EnsureAdmin: %v", err)
		}
	}
	if len(repo.users) != 1 {
		t.Fatalf("seeding must be idempotent, got %d users", len(repo.users))
	}
	admin, err := repo.GetByEmail(ctx, "admin@crms.test")
	if err != nil || admin.Role != model.RoleSystemAdmin || admin.Username != "admin" {
		t.Errorf("unexpected seeded admin %+v (%v)", admin, err)
	}
}
