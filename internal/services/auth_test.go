package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/apperr"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/testutil"
)

func newAuthService(t *testing.T, conn *gorm.DB) AuthService {
	t.Helper()
	log := testutil.NewLogger(t)
	return NewAuthService(
		conn, log,
		repos.NewUserRepo(conn, log),
		repos.NewUserTokenRepo(conn, log),
		"test-secret",
		time.Hour,
		24*time.Hour,
	)
}

func TestRegisterLoginRoundtrip(t *testing.T) {
	conn := testutil.NewDB(t)
	as := newAuthService(t, conn)

	user, err := as.Register(context.Background(), RegisterInput{
		Email:     "Alex@Example.com",
		Password:  "hunter2hunter2",
		FirstName: "Alex",
		LastName:  "Doe",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alex@example.com" {
		t.Fatalf("email = %s, want lowercased", user.Email)
	}
	if user.Password == "hunter2hunter2" {
		t.Fatal("password stored in plaintext")
	}

	pair, err := as.Login(context.Background(), "alex@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("token pair incomplete: %+v", pair)
	}

	parsed, err := as.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if parsed != user.ID {
		t.Fatalf("token subject = %s, want %s", parsed, user.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	conn := testutil.NewDB(t)
	as := newAuthService(t, conn)

	if _, err := as.Register(context.Background(), RegisterInput{
		Email:    "alex@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := as.Login(context.Background(), "alex@example.com", "wrong-password"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("wrong password err = %v, want ErrUnauthorized", err)
	}
	if _, err := as.Login(context.Background(), "nobody@example.com", "hunter2hunter2"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("unknown email err = %v, want ErrUnauthorized", err)
	}
}

func TestDuplicateEmailConflicts(t *testing.T) {
	conn := testutil.NewDB(t)
	as := newAuthService(t, conn)

	input := RegisterInput{Email: "alex@example.com", Password: "hunter2hunter2"}
	if _, err := as.Register(context.Background(), input); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := as.Register(context.Background(), input); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate register err = %v, want ErrConflict", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	conn := testutil.NewDB(t)
	as := newAuthService(t, conn)

	if _, err := as.Register(context.Background(), RegisterInput{
		Email:    "alex@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := as.Login(context.Background(), "alex@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := as.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// The old token is dead after rotation.
	if _, err := as.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("stale refresh err = %v, want ErrUnauthorized", err)
	}
}
