package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/base-app/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := d.AutoMigrate(&models.User{}, &models.Profile{}, &models.Permission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func newTestRepo(t *testing.T) (UserRepository, *gorm.DB) {
	t.Helper()
	d := setupTestDB(t)
	return NewUserRepository(d, slog.New(slog.NewTextHandler(io.Discard, nil))), d
}

func TestCreateUserCreatesProfileAndPermission(t *testing.T) {
	repo, d := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "  Alice@Example.COM ", "s3cret-pass")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("s3cret-pass")) != nil {
		t.Error("stored password is not a valid bcrypt hash of the input")
	}
	if !user.IsActive {
		t.Error("new user should be active")
	}

	var userCount, profileCount, permCount int64
	d.Model(&models.User{}).Count(&userCount)
	d.Model(&models.Profile{}).Count(&profileCount)
	d.Model(&models.Permission{}).Count(&permCount)
	if userCount != 1 || profileCount != 1 || permCount != 1 {
		t.Fatalf("expected exactly one row per table, got users=%d profiles=%d permissions=%d", userCount, profileCount, permCount)
	}

	var profile models.Profile
	if err := d.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("profile not linked to user: %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Errorf("profile email should mirror account email, got %q", profile.Email)
	}
	if profile.Verification {
		t.Error("new profile must not be verified")
	}

	var perm models.Permission
	if err := d.Where("profile_id = ?", profile.ID).First(&perm).Error; err != nil {
		t.Fatalf("permission not linked to profile: %v", err)
	}
	if !perm.IsUser {
		t.Error("default permission must have is_user=true")
	}
	if perm.HasRole() {
		t.Errorf("no elevated role flag may be set on a fresh account: %+v", perm)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, d := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "bob@example.com", "pass-one"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// Same address with different case and padding must still collide.
	_, err := repo.CreateUser(ctx, " BOB@example.com", "pass-two")
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	var userCount, profileCount, permCount int64
	d.Model(&models.User{}).Count(&userCount)
	d.Model(&models.Profile{}).Count(&profileCount)
	d.Model(&models.Permission{}).Count(&permCount)
	if userCount != 1 || profileCount != 1 || permCount != 1 {
		t.Fatalf("duplicate attempt mutated state: users=%d profiles=%d permissions=%d", userCount, profileCount, permCount)
	}
}

func TestGetByEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user for unknown email, got %+v", user)
	}

	created, err := repo.CreateUser(ctx, "carol@example.com", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.GetByEmail(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("wrong user returned: %+v", got)
	}
	if got.Profile == nil {
		t.Fatal("profile must be eagerly loaded")
	}
	if got.Profile.UserID != got.ID {
		t.Errorf("profile not linked: user=%d profile.user_id=%d", got.ID, got.Profile.UserID)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	repo, d := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "dora@example.com", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	profile, err := repo.GetProfileByUserID(ctx, user.ID)
	if err != nil || profile == nil {
		t.Fatalf("profile: %v", err)
	}
	full := ProfilePatch{
		Nickname:  ptr("dora"),
		FirstName: ptr("Dora"),
		Phone:     ptr("+100200300"),
	}
	if err := repo.UpdateProfile(ctx, profile.ID, full); err != nil {
		t.Fatalf("seed update: %v", err)
	}

	if err := repo.UpdateProfile(ctx, profile.ID, ProfilePatch{Nickname: ptr("Bob")}); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	var after models.Profile
	if err := d.First(&after, profile.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.Nickname != "Bob" {
		t.Errorf("nickname not updated: %q", after.Nickname)
	}
	if after.FirstName != "Dora" || after.Phone != "+100200300" {
		t.Errorf("untouched fields changed: first_name=%q phone=%q", after.FirstName, after.Phone)
	}
	if after.Email != "dora@example.com" {
		t.Errorf("profile email changed unexpectedly: %q", after.Email)
	}

	// Empty patch is a no-op.
	if err := repo.UpdateProfile(ctx, profile.ID, ProfilePatch{}); err != nil {
		t.Fatalf("empty patch: %v", err)
	}
}

func TestGetProfileByUserIDMissing(t *testing.T) {
	repo, _ := newTestRepo(t)
	profile, err := repo.GetProfileByUserID(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
}

func TestListUsersDescending(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, email := range []string{"one@example.com", "two@example.com", "three@example.com"} {
		if _, err := repo.CreateUser(ctx, email, "pass"); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}
	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i := 1; i < len(users); i++ {
		if users[i-1].ID <= users[i].ID {
			t.Fatalf("users not ordered by descending id: %d then %d", users[i-1].ID, users[i].ID)
		}
	}
	if users[0].Email != "three@example.com" {
		t.Errorf("most recent user first expected, got %q", users[0].Email)
	}
}

func TestDeleteProfileCascades(t *testing.T) {
	repo, d := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "erin@example.com", "pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	profile, err := repo.GetProfileByUserID(ctx, user.ID)
	if err != nil || profile == nil {
		t.Fatalf("profile: %v", err)
	}

	if err := repo.DeleteProfile(ctx, profile.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	var userCount, profileCount, permCount int64
	d.Model(&models.User{}).Where("id = ?", user.ID).Count(&userCount)
	d.Model(&models.Profile{}).Where("id = ?", profile.ID).Count(&profileCount)
	d.Model(&models.Permission{}).Where("profile_id = ?", profile.ID).Count(&permCount)
	if userCount != 0 {
		t.Error("owning user must be removed when its profile is deleted")
	}
	if profileCount != 0 {
		t.Error("profile row still present")
	}
	if permCount != 0 {
		t.Error("permission row still present")
	}
}

func ptr(s string) *string { return &s }
