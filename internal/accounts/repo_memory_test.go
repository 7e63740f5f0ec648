package accounts

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepo_FindByVapiPhoneNumber(t *testing.T) {
	repo := NewMemoryRepo(
		Account{ID: "u1", Email: "a@shop.test", VapiPhoneNumber: "pn_a"},
		Account{ID: "u2", Email: "b@shop.test", VapiPhoneNumber: "pn_b"},
	)
	ctx := context.Background()

	a, err := repo.FindByVapiPhoneNumber(ctx, " pn_b ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if a.ID != "u2" {
		t.Fatalf("expected u2, got %s", a.ID)
	}

	// Unknown and empty ids never fall back to another account.
	for _, id := range []string{"pn_zzz", ""} {
		if _, err := repo.FindByVapiPhoneNumber(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("id %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestMemoryRepo_Get(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Put(Account{ID: "u1"})
	if _, err := repo.Get(context.Background(), "u1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := repo.Get(context.Background(), "u9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParsePreferences(t *testing.T) {
	if parsePreferences(nil) != nil || parsePreferences([]byte("null")) != nil {
		t.Fatalf("expected nil preferences for empty column")
	}
	if parsePreferences([]byte("[1]")) != nil {
		t.Fatalf("expected nil preferences for malformed column")
	}
	p := parsePreferences([]byte(`{"email_hot_leads":true}`))
	if p == nil || !p.EmailHotLeads || p.EmailAllCalls {
		t.Fatalf("unexpected preferences: %+v", p)
	}
}
