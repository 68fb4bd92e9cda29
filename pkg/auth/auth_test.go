package auth

import (
	"strings"
	"testing"

	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/testutil"
	"golang.org/x/crypto/bcrypt"
)

func TestHMACKey_RoundTrip(t *testing.T) {
	a := New("jwt-secret", "master-secret")

	key := a.GenerateHMACKey("church-west")
	if !strings.HasPrefix(key, "church-west.") {
		t.Fatalf("unexpected key format %q", key)
	}

	userID, err := a.VerifyHMACKey(key)
	if err != nil {
		t.Fatalf("VerifyHMACKey failed: %v", err)
	}
	if userID != "church-west" {
		t.Errorf("Expected church-west, got %s", userID)
	}
}

func TestHMACKey_Rejects(t *testing.T) {
	a := New("jwt-secret", "master-secret")
	other := New("jwt-secret", "other-secret")

	tests := []string{
		"",
		"no-dot",
		"a.b.c",
		other.GenerateHMACKey("church-west"),
		"church-west." + strings.Repeat("0", 64),
	}
	for _, key := range tests {
		if _, err := a.VerifyHMACKey(key); err == nil {
			t.Errorf("Expected %q to be rejected", key)
		}
	}
}

func TestToken_RoundTrip(t *testing.T) {
	a := New("jwt-secret", "master-secret")

	token, err := a.CreateToken("admin")
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	claims, err := a.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("Expected admin, got %s", claims.Username)
	}

	if _, err := New("different", "master-secret").VerifyToken(token); err == nil {
		t.Error("Expected token signed with another secret to fail")
	}
}

func TestEnsureAdminExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := New("jwt-secret", "master-secret").WithBcryptCost(bcrypt.MinCost)

	created, err := a.EnsureAdminExists(db, "admin", "pw")
	if err != nil {
		t.Fatalf("EnsureAdminExists failed: %v", err)
	}
	if !created {
		t.Error("Expected admin to be created")
	}

	created, err = a.EnsureAdminExists(db, "admin2", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("Expected no second admin")
	}

	var user database.MasterUser
	if err := db.First(&user).Error; err != nil {
		t.Fatal(err)
	}
	if !CheckPasswordHash("pw", user.PasswordHash) {
		t.Error("Expected stored hash to match password")
	}
}

func TestKeyPreview(t *testing.T) {
	if got := KeyPreview("short"); got != "****" {
		t.Errorf("got %q", got)
	}
	if got := KeyPreview("abcdefghijkl"); got != "abc...ijkl" {
		t.Errorf("got %q", got)
	}
}
