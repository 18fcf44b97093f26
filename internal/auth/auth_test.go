package auth

import (
	"context"
	"testing"
)

func TestNewTokenSourceStatic(t *testing.T) {
	ts, err := NewTokenSource(context.Background(), "static-token", "", "client", "https://issuer/oauth/token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "static-token" {
		t.Errorf("access token: %q", tok.AccessToken)
	}
}

func TestNewTokenSourceStaticWinsOverRefresh(t *testing.T) {
	ts, err := NewTokenSource(context.Background(), "static-token", "refresh-token", "client", "https://issuer/oauth/token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, _ := ts.Token()
	if tok.AccessToken != "static-token" {
		t.Errorf("static token should win, got %q", tok.AccessToken)
	}
}

func TestNewTokenSourceNoCredentials(t *testing.T) {
	if _, err := NewTokenSource(context.Background(), "", "", "client", "https://issuer/oauth/token"); err != ErrNoCredentials {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestNewTokenSourceRefreshFlow(t *testing.T) {
	ts, err := NewTokenSource(context.Background(), "", "refresh-token", "client", "https://issuer/oauth/token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts == nil {
		t.Fatal("expected a token source")
	}
}
