package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"oticagest/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func adminOnlyStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := adminOnlyStore()

	manager := NewAuthManager("test-secret", time.Hour, store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"antigo": {
				Username:  "antigo",
				Password:  "segredo1",
				Role:      "seller",
				Active:    false,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "antigo",
		Password: "segredo1",
	})
	if err == nil {
		t.Fatal("expected login to fail for inactive account")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())

	token, err := manager.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())
	other := NewAuthManager("another-secret", time.Hour, nil)

	token, err := other.sign("admin", "admin", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

func TestCreateSellerStoresPasswordHash(t *testing.T) {
	store := adminOnlyStore()

	manager := NewAuthManager("test-secret", time.Hour, store)
	seller, err := manager.CreateSeller(domain.SellerCreateRequest{
		Username: "vendedornovo",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create seller failed: %v", err)
	}
	if seller.Username != "vendedornovo" {
		t.Fatalf("unexpected username %s", seller.Username)
	}
	if seller.Role != "seller" {
		t.Fatalf("unexpected role %s", seller.Role)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "vendedornovo" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected seller to be saved")
	}
	if found.Password == "pass1234" {
		t.Fatalf("expected seller password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	_, err = manager.Login(domain.LoginRequest{
		Username: "vendedornovo",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed seller failed: %v", err)
	}
}

func TestCreateSellerValidatesInput(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())

	cases := []domain.SellerCreateRequest{
		{Username: "ana", Password: "segredo1"},
		{Username: "ana maria", Password: "segredo1"},
		{Username: "anamaria", Password: "123"},
		{Username: "admin", Password: "segredo1"},
	}
	for _, req := range cases {
		if _, err := manager.CreateSeller(req); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}
}

func TestListSellersExcludesAdmins(t *testing.T) {
	store := adminOnlyStore()
	manager := NewAuthManager("test-secret", time.Hour, store)

	if _, err := manager.CreateSeller(domain.SellerCreateRequest{Username: "bruno", Password: "segredo1"}); err != nil {
		t.Fatalf("create seller failed: %v", err)
	}
	if _, err := manager.CreateSeller(domain.SellerCreateRequest{Username: "alice", Password: "segredo1"}); err != nil {
		t.Fatalf("create seller failed: %v", err)
	}

	sellers := manager.ListSellers()
	if len(sellers) != 2 {
		t.Fatalf("expected 2 sellers, got %d", len(sellers))
	}
	// Sorted by username.
	if sellers[0].Username != "alice" || sellers[1].Username != "bruno" {
		t.Fatalf("unexpected order %v", sellers)
	}
}
