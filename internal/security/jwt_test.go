package security

import (
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, errCreate := CreateAdminToken("secret", 7, "root", time.Hour)
	if errCreate != nil {
		t.Fatalf("CreateAdminToken: %v", errCreate)
	}

	claims, errParse := ParseAdminToken("secret", token)
	if errParse != nil {
		t.Fatalf("ParseAdminToken: %v", errParse)
	}
	if claims.AdminID != 7 || claims.Username != "root" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAdminTokenWrongSecret(t *testing.T) {
	token, _ := CreateAdminToken("secret", 7, "root", time.Hour)
	if _, errParse := ParseAdminToken("other", token); errParse == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestBusinessTokenRoundTrip(t *testing.T) {
	token, errCreate := CreateBusinessToken("secret", 3, "acme", time.Hour)
	if errCreate != nil {
		t.Fatalf("CreateBusinessToken: %v", errCreate)
	}

	claims, errParse := ParseBusinessToken("secret", token)
	if errParse != nil {
		t.Fatalf("ParseBusinessToken: %v", errParse)
	}
	if claims.BusinessID != 3 || claims.Username != "acme" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenSubjectsAreNotInterchangeable(t *testing.T) {
	adminToken, _ := CreateAdminToken("secret", 7, "root", time.Hour)
	if _, errParse := ParseBusinessToken("secret", adminToken); errParse == nil {
		t.Fatal("expected admin token to fail business parsing")
	}

	businessToken, _ := CreateBusinessToken("secret", 3, "acme", time.Hour)
	if _, errParse := ParseAdminToken("secret", businessToken); errParse == nil {
		t.Fatal("expected business token to fail admin parsing")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _ := CreateAdminToken("secret", 7, "root", -time.Minute)
	if _, errParse := ParseAdminToken("secret", token); errParse == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, errHash := HashPassword("hunter2")
	if errHash != nil {
		t.Fatalf("HashPassword: %v", errHash)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestGenerateQRCode(t *testing.T) {
	first, errFirst := GenerateQRCode()
	if errFirst != nil {
		t.Fatalf("GenerateQRCode: %v", errFirst)
	}
	second, _ := GenerateQRCode()
	if first == second {
		t.Fatal("expected unique codes")
	}
	if len(first) < 10 {
		t.Fatalf("expected opaque identifier, got %q", first)
	}
}
