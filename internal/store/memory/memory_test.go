package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/didjohn/internal/store/core"
)

const testDID = "did:ethr:0x1234567890abcdef1234567890abcdef12345678"

func TestUpsertAndGetUser(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, &core.User{DID: testDID}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	u, err := s.GetUser(ctx, testDID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.DID != testDID || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", u)
	}

	// El upsert preserva CreatedAt.
	created := u.CreatedAt
	if err := s.UpsertUser(ctx, &core.User{DID: testDID, GSYDexAddress: "5Gr"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	u, _ = s.GetUser(ctx, testDID)
	if !u.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt changed on upsert: %v != %v", u.CreatedAt, created)
	}
	if u.GSYDexAddress != "5Gr" {
		t.Fatalf("address not updated: %q", u.GSYDexAddress)
	}
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	if _, err := s.GetUser(context.Background(), testDID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	_ = s.UpsertUser(ctx, &core.User{DID: testDID})
	if err := s.DeleteUser(ctx, testDID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, testDID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestSetUserLinkMarksCredential(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	_ = s.UpsertUser(ctx, &core.User{DID: testDID})
	if err := s.SetUserLink(ctx, testDID, "5GrwvaEF"); err != nil {
		t.Fatalf("SetUserLink: %v", err)
	}
	u, _ := s.GetUser(ctx, testDID)
	if !u.HasVerifiedCredential || u.GSYDexAddress != "5GrwvaEF" {
		t.Fatalf("link not applied: %+v", u)
	}
}

func TestSetUserDeactivated(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	_ = s.UpsertUser(ctx, &core.User{DID: testDID})
	if err := s.SetUserDeactivated(ctx, testDID); err != nil {
		t.Fatalf("SetUserDeactivated: %v", err)
	}
	u, _ := s.GetUser(ctx, testDID)
	if !u.Deactivated {
		t.Fatal("user not deactivated")
	}
}

func seedChallenge(t *testing.T, s *Store, id string, expires time.Time) {
	t.Helper()
	err := s.CreateChallenge(context.Background(), &core.Challenge{
		ID: id, DID: testDID, Text: "sign me",
		CreatedAt: time.Now().UTC(), ExpiresAt: expires,
	})
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
}

func TestConsumeChallengeSingleUse(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()
	seedChallenge(t, s, "ch-1", now.Add(time.Minute))

	c, err := s.ConsumeChallenge(ctx, testDID, "ch-1", now)
	if err != nil {
		t.Fatalf("ConsumeChallenge: %v", err)
	}
	if !c.Used {
		t.Fatal("returned copy should be marked used")
	}
	if _, err := s.ConsumeChallenge(ctx, testDID, "ch-1", now); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second consume: want ErrNotFound, got %v", err)
	}
}

func TestConsumeChallengeWrongDID(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	now := time.Now().UTC()
	seedChallenge(t, s, "ch-2", now.Add(time.Minute))

	_, err := s.ConsumeChallenge(context.Background(), "did:ethr:0x0000000000000000000000000000000000000001", "ch-2", now)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// El intento fallido no quema el challenge del dueño.
	if _, err := s.ConsumeChallenge(context.Background(), testDID, "ch-2", now); err != nil {
		t.Fatalf("owner consume after foreign attempt: %v", err)
	}
}

func TestConsumeChallengeExpired(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	now := time.Now().UTC()
	seedChallenge(t, s, "ch-3", now.Add(50*time.Millisecond))

	_, err := s.ConsumeChallenge(context.Background(), testDID, "ch-3", now.Add(time.Second))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound for expired, got %v", err)
	}
}

func TestConsumeChallengeConcurrent(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	now := time.Now().UTC()
	seedChallenge(t, s, "ch-4", now.Add(time.Minute))

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeChallenge(context.Background(), testDID, "ch-4", now); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)
	if got := len(wins); got != 1 {
		t.Fatalf("want exactly 1 winner, got %d", got)
	}
}

func TestCredentialStatusRevokedIsTerminal(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	cred := &core.Credential{
		ID: "urn:uuid:abc", DID: testDID, GSYDexAddress: "5Gr",
		Subject: json.RawMessage(`{}`), Document: json.RawMessage(`{}`),
		Status: core.CredentialActive, ExpirationDate: time.Now().Add(time.Hour),
	}
	if err := s.CreateCredential(ctx, cred); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	if err := s.CreateCredential(ctx, cred); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate id: want ErrConflict, got %v", err)
	}

	if err := s.SetCredentialStatus(ctx, cred.ID, core.CredentialRevoked); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := s.SetCredentialStatus(ctx, cred.ID, core.CredentialActive); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("un-revoke: want ErrConflict, got %v", err)
	}
	got, err := s.GetCredential(ctx, cred.ID)
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if got.Status != core.CredentialRevoked {
		t.Fatalf("status = %q, want revoked", got.Status)
	}
}

func TestListCredentialsByDIDOrdered(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	for _, id := range []string{"urn:uuid:1", "urn:uuid:2"} {
		err := s.CreateCredential(ctx, &core.Credential{
			ID: id, DID: testDID,
			Subject: json.RawMessage(`{}`), Document: json.RawMessage(`{}`),
			Status: core.CredentialActive,
		})
		if err != nil {
			t.Fatalf("CreateCredential %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	_ = s.CreateCredential(ctx, &core.Credential{
		ID: "urn:uuid:other", DID: "did:ethr:0x0000000000000000000000000000000000000002",
		Subject: json.RawMessage(`{}`), Document: json.RawMessage(`{}`),
	})

	out, err := s.ListCredentialsByDID(ctx, testDID)
	if err != nil {
		t.Fatalf("ListCredentialsByDID: %v", err)
	}
	if len(out) != 2 || out[0].ID != "urn:uuid:1" || out[1].ID != "urn:uuid:2" {
		t.Fatalf("unexpected listing: %+v", out)
	}
}

func TestAuditLogListing(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	ctx := context.Background()

	for i, action := range []core.AuditAction{core.AuditLoginAttempt, core.AuditLoginSuccess} {
		err := s.InsertAuditLog(ctx, &core.AuditLog{
			DID: testDID, Action: action, Success: true,
			Metadata: map[string]any{"seq": i},
		})
		if err != nil {
			t.Fatalf("InsertAuditLog: %v", err)
		}
	}
	logs, err := s.ListAuditLogsByDID(ctx, testDID)
	if err != nil {
		t.Fatalf("ListAuditLogsByDID: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("want 2 logs, got %d", len(logs))
	}
	for _, l := range logs {
		if l.ID == "" || l.CreatedAt.IsZero() {
			t.Fatalf("log missing id/timestamp: %+v", l)
		}
	}
}
