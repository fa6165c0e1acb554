package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "coachrewards", ExpirationMinutes: 15}
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	signed, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("ParseAccessToken error: %v", err)
	}
	if claims.UserID != payload.UserID {
		t.Fatalf("user id mismatch: %s", claims.UserID)
	}
	if !claims.IsAdmin() {
		t.Fatal("expected admin capability")
	}
}

func TestParseAccessToken_WrongIssuer(t *testing.T) {
	mintCfg := config.JWTConfig{Secret: "secret", Issuer: "someone-else", ExpirationMinutes: 15}
	signed, err := MintAccessToken(mintCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleCoach})
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	parseCfg := config.JWTConfig{Secret: "secret", Issuer: "coachrewards", ExpirationMinutes: 15}
	if _, err := ParseAccessToken(parseCfg, signed); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestMintAccessToken_InvalidRole(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "coachrewards", ExpirationMinutes: 15}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "superuser"}); err == nil {
		t.Fatal("expected invalid role to fail")
	}
}
