package did

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/didjohn/internal/audit"
	"github.com/dropDatabas3/didjohn/internal/did/registry"
	"github.com/dropDatabas3/didjohn/internal/store/core"
	"github.com/dropDatabas3/didjohn/internal/store/memory"
)

const testDID = "did:ethr:0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"

// fakeRegistry simula el estado on-chain sin tocar un nodo.
type fakeRegistry struct {
	registered bool
	owner      common.Address
}

func (f *fakeRegistry) IsRegistered(ctx context.Context, identity common.Address) (bool, error) {
	return f.registered, nil
}

func (f *fakeRegistry) IdentityOwner(ctx context.Context, identity common.Address) (common.Address, error) {
	return f.owner, nil
}

func (f *fakeRegistry) PrepareSetAttribute(identity common.Address, name string, value []byte, validity *big.Int) (*registry.PreparedTransaction, error) {
	return &registry.PreparedTransaction{To: "0xregistry", Data: "0xsetattr", Value: "0"}, nil
}

func (f *fakeRegistry) PrepareDeactivate(identity common.Address) (*registry.PreparedTransaction, error) {
	return &registry.PreparedTransaction{To: "0xregistry", Data: "0xchangeowner", Value: "0"}, nil
}

func newDIDService(reg *fakeRegistry) (*Service, *memory.Store) {
	st := memory.New(10 * time.Minute)
	return NewService(Deps{Store: st, Audit: audit.NewService(st), Registry: reg}), st
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newDIDService(&fakeRegistry{})

	res, err := svc.Create(ctx, testDID, "0x04deadbeef", audit.Entry{})
	require.NoError(t, err)
	require.Equal(t, testDID, res.DID)
	require.NotNil(t, res.Transaction)
	require.Equal(t, "0", res.Transaction.Value)

	u, err := st.GetUser(ctx, testDID)
	require.NoError(t, err)
	require.Equal(t, testDID, u.DID)

	logs, err := st.ListAuditLogsByDID(ctx, testDID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, core.AuditDIDCreated, logs[0].Action)
}

func TestCreateConflictOnActiveRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newDIDService(&fakeRegistry{})

	_, err := svc.Create(ctx, testDID, "0x04deadbeef", audit.Entry{})
	require.NoError(t, err)

	_, err = svc.Create(ctx, testDID, "0x04deadbeef", audit.Entry{})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateAfterDeactivation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newDIDService(&fakeRegistry{})

	_, err := svc.Create(ctx, testDID, "0x04deadbeef", audit.Entry{})
	require.NoError(t, err)
	_, err = svc.PrepareDeactivate(ctx, testDID, audit.Entry{})
	require.NoError(t, err)

	// Un registro desactivado puede recrearse.
	_, err = svc.Create(ctx, testDID, "0x04cafe", audit.Entry{})
	require.NoError(t, err)
}

func TestCreateRejectsBadDID(t *testing.T) {
	t.Parallel()
	svc, _ := newDIDService(&fakeRegistry{})

	_, err := svc.Create(context.Background(), "did:web:example.com", "0x04", audit.Entry{})
	require.ErrorIs(t, err, ErrInvalidDID)
}

func TestResolveActive(t *testing.T) {
	t.Parallel()
	owner := common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0")
	svc, _ := newDIDService(&fakeRegistry{owner: owner})

	doc, err := svc.Resolve(context.Background(), testDID)
	require.NoError(t, err)
	require.Equal(t, testDID, doc.ID)
	require.False(t, doc.Deactivated)
	require.Len(t, doc.VerificationMethod, 1)
	require.Equal(t, testDID+"#controller", doc.VerificationMethod[0].ID)
	require.Equal(t, Format(owner), doc.Controller)
}

func TestResolveDeactivated(t *testing.T) {
	t.Parallel()
	svc, _ := newDIDService(&fakeRegistry{owner: common.Address{}})

	doc, err := svc.Resolve(context.Background(), testDID)
	require.NoError(t, err)
	require.True(t, doc.Deactivated)
	require.Empty(t, doc.VerificationMethod)
}

func TestPrepareUpdateRequiresRegistration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newDIDService(&fakeRegistry{registered: false})
	_, err := svc.PrepareUpdate(ctx, testDID, "0x04beef", audit.Entry{})
	require.ErrorIs(t, err, ErrNotRegistered)

	svc2, st := newDIDService(&fakeRegistry{registered: true})
	tx, err := svc2.PrepareUpdate(ctx, testDID, "0x04beef", audit.Entry{})
	require.NoError(t, err)
	require.NotNil(t, tx)

	logs, err := st.ListAuditLogsByDID(ctx, testDID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, core.AuditDIDUpdated, logs[0].Action)
}

func TestPrepareDeactivateMarksLocalRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newDIDService(&fakeRegistry{})

	_, err := svc.Create(ctx, testDID, "0x04deadbeef", audit.Entry{})
	require.NoError(t, err)

	tx, err := svc.PrepareDeactivate(ctx, testDID, audit.Entry{})
	require.NoError(t, err)
	require.NotNil(t, tx)

	u, err := st.GetUser(ctx, testDID)
	require.NoError(t, err)
	require.True(t, u.Deactivated)
}

func TestExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Sin registro local: decide la cadena.
	svc, st := newDIDService(&fakeRegistry{registered: false})
	ok, err := svc.Exists(ctx, testDID)
	require.NoError(t, err)
	require.False(t, ok)

	// Registro local gana sin consultar la cadena.
	require.NoError(t, st.UpsertUser(ctx, &core.User{DID: testDID}))
	ok, err = svc.Exists(ctx, testDID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Exists(ctx, "no-es-un-did")
	require.ErrorIs(t, err, ErrInvalidDID)
}
