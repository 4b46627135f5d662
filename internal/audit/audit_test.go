package audit

import (
	"context"
	"testing"

	"github.com/dropDatabas3/didjohn/internal/store/core"
	"github.com/dropDatabas3/didjohn/internal/store/memory"
)

func TestFailureDoesNotMutateCallerMeta(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"challengeId": "abc"}
	e := Failure(meta, "bad signature")

	if _, ok := meta["error"]; ok {
		t.Fatal("caller map gained an error key")
	}
	if e.Metadata["error"] != "bad signature" {
		t.Fatalf("entry missing reason: %+v", e.Metadata)
	}
	if e.Metadata["challengeId"] != "abc" {
		t.Fatalf("entry missing caller meta: %+v", e.Metadata)
	}

	// Mutar la entry tampoco toca el mapa del caller.
	e.Metadata["extra"] = true
	if _, ok := meta["extra"]; ok {
		t.Fatal("entry metadata aliases the caller map")
	}
}

func TestEntriesFromSharedMetaDoNotAlias(t *testing.T) {
	t.Parallel()

	shared := map[string]any{"ip": "10.0.0.1"}
	a := Failure(shared, "first")
	b := OK(shared)
	b.Metadata["credentialId"] = "urn:uuid:x"

	if _, ok := a.Metadata["credentialId"]; ok {
		t.Fatal("records share one metadata map")
	}
	if a.Metadata["error"] != "first" {
		t.Fatalf("failure entry lost its reason: %+v", a.Metadata)
	}
}

func TestRecordPersistsIndependentMetadata(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st := memory.New(0)
	svc := NewService(st)
	shared := map[string]any{"seq": 1}

	svc.Record(ctx, core.AuditLoginFailure, "did:ethr:0xabc", Failure(shared, "uno"))
	svc.Record(ctx, core.AuditLoginFailure, "did:ethr:0xabc", Failure(shared, "dos"))

	logs, err := st.ListAuditLogsByDID(ctx, "did:ethr:0xabc")
	if err != nil {
		t.Fatalf("ListAuditLogsByDID: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("want 2 logs, got %d", len(logs))
	}
	// Más reciente primero.
	if logs[0].Metadata["error"] != "dos" || logs[1].Metadata["error"] != "uno" {
		t.Fatalf("records share reason: %v / %v", logs[0].Metadata, logs[1].Metadata)
	}
}
