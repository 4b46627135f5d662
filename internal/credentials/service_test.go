package credentials

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/didjohn/internal/audit"
	"github.com/dropDatabas3/didjohn/internal/crypto/ethsig"
	"github.com/dropDatabas3/didjohn/internal/crypto/subsig"
	"github.com/dropDatabas3/didjohn/internal/did"
	"github.com/dropDatabas3/didjohn/internal/store/memory"
)

type stubRegistry struct{ registered bool }

func (r stubRegistry) IsRegistered(ctx context.Context, did string) (bool, error) {
	return r.registered, nil
}

// substrateFixture genera una dirección SS58 sr25519 y firma message (ya
// envuelto por el caller) con su clave.
func substrateFixture(t *testing.T, wrapped string) (address, signature string) {
	t.Helper()

	priv, pub, err := schnorrkel.GenerateKeypair()
	require.NoError(t, err)
	sig, err := priv.Sign(schnorrkel.NewSigningContext([]byte("substrate"), []byte(wrapped)))
	require.NoError(t, err)
	sigBytes := sig.Encode()
	pubBytes := pub.Encode()

	addr, err := subsig.EncodeSS58(pubBytes[:], 42)
	require.NoError(t, err)
	return addr, hex.EncodeToString(sigBytes[:])
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	holder  *ecdsa.PrivateKey
	did     string
	subAddr string

	challenge string
	ethSig    string
	subSig    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	holder, err := crypto.GenerateKey()
	require.NoError(t, err)

	st := memory.New(10 * time.Minute)
	svc := NewService(Deps{
		Store:     st,
		Audit:     audit.NewService(st),
		Registry:  stubRegistry{registered: true},
		IssuerKey: issuerKey,
	})

	holderDID := did.Format(ethsig.AddressOf(holder))
	challenge := "Link my GSY DEX account at 2026-08-31T00:00:00Z"

	ethSig, err := ethsig.Sign(challenge, holder)
	require.NoError(t, err)
	subAddr, subSig := substrateFixture(t, subsig.WrapMessage(challenge))

	return &fixture{
		svc: svc, store: st, holder: holder, did: holderDID, subAddr: subAddr,
		challenge: challenge, ethSig: ethSig, subSig: subSig,
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.NoError(t, err)

	require.Equal(t, []string{ContextCredentialsV1, ContextGSYDexV1}, doc.Context)
	require.Equal(t, []string{TypeVerifiableCredential, TypeGSYDexAddress}, doc.Type)
	require.Contains(t, doc.ID, "urn:uuid:")
	require.Equal(t, f.svc.IssuerDID(), doc.Issuer)
	require.Equal(t, f.did, doc.Subject.ID)
	require.Equal(t, f.subAddr, doc.Subject.AccountLink.GSYDexAddress)
	require.Equal(t, ChainGSYDex, doc.Subject.AccountLink.Chain)
	require.NotNil(t, doc.Proof)
	require.Equal(t, ProofType, doc.Proof.Type)
	require.Equal(t, f.svc.IssuerDID()+"#controller", doc.Proof.VerificationMethod)
	require.WithinDuration(t, doc.IssuanceDate.Add(365*24*time.Hour), doc.ExpirationDate, time.Second)

	// El usuario queda vinculado.
	u, err := f.store.GetUser(ctx, f.did)
	require.NoError(t, err)
	require.Equal(t, f.subAddr, u.GSYDexAddress)
	require.True(t, u.HasVerifiedCredential)

	// El documento emitido verifica tal cual.
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	res, err := f.svc.Verify(ctx, raw, audit.Entry{})
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Equal(t, "active", res.Status)
	require.Equal(t, f.did, res.DID)
	require.Equal(t, f.subAddr, res.LinkedAddress)
}

func TestIssueRejectsBadDIDSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	wrongSig, err := ethsig.Sign(f.challenge, other)
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, wrongSig, f.subSig, audit.Entry{})
	require.ErrorIs(t, err, ErrInvalidDIDSignature)

	// Exactamente un registro de auditoría fallido con la razón.
	logs, err := f.store.ListAuditLogsByDID(ctx, f.did)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.False(t, logs[0].Success)
}

func TestIssueRejectsBadSubstrateSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	// Firma substrate válida pero de otra clave.
	otherAddr, _ := substrateFixture(t, subsig.WrapMessage(f.challenge))
	_, otherSig := substrateFixture(t, subsig.WrapMessage("otro mensaje"))

	_, err := f.svc.Issue(ctx, f.did, otherAddr, f.challenge, f.ethSig, otherSig, audit.Entry{})
	require.ErrorIs(t, err, ErrInvalidSubstrateSignature)

	logs, err := f.store.ListAuditLogsByDID(ctx, f.did)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.False(t, logs[0].Success)
	require.Contains(t, logs[0].Metadata, "error")
}

func TestIssueUnregisteredDID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	issuerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	st := memory.New(10 * time.Minute)
	svc := NewService(Deps{
		Store:     st,
		Audit:     audit.NewService(st),
		Registry:  stubRegistry{registered: false},
		IssuerKey: issuerKey,
	})

	_, err = svc.Issue(context.Background(), f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.ErrorIs(t, err, ErrUnregisteredDID)
}

func TestVerifyTamperedSubject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.NoError(t, err)

	// Mutar un byte del claim set manteniendo el proof original.
	tampered := *doc
	tampered.Subject.AccountLink.GSYDexAddress = f.subAddr[:len(f.subAddr)-1] + "x"
	raw, err := json.Marshal(tampered)
	require.NoError(t, err)

	res, err := f.svc.Verify(ctx, raw, audit.Entry{})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "invalid", res.Status)
}

func TestVerifyUnknownCredential(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	doc := Document{
		Context:        []string{ContextCredentialsV1},
		ID:             "urn:uuid:00000000-0000-0000-0000-000000000000",
		Type:           []string{TypeVerifiableCredential},
		Issuer:         f.svc.IssuerDID(),
		IssuanceDate:   time.Now().UTC(),
		ExpirationDate: time.Now().UTC().Add(time.Hour),
		Subject:        Subject{ID: f.did, AccountLink: AccountLink{GSYDexAddress: f.subAddr, Chain: ChainGSYDex}},
		Proof:          &Proof{Type: ProofType, JWS: "0xdead"},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	res, err := f.svc.Verify(context.Background(), raw, audit.Entry{})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "unknown", res.Status)
	// El sujeto del veredicto sale del documento presentado.
	require.Equal(t, f.did, res.DID)
	require.Equal(t, f.subAddr, res.LinkedAddress)
}

func TestVerifyMalformedDocument(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Verify(context.Background(), json.RawMessage(`{"id":""}`), audit.Entry{})
	require.ErrorIs(t, err, ErrBadCredential)

	_, err = f.svc.Verify(context.Background(), json.RawMessage(`not json`), audit.Entry{})
	require.ErrorIs(t, err, ErrBadCredential)
}

func TestRevokeIsOneWayAndDominatesVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(ctx, doc.ID, audit.Entry{}))
	require.ErrorIs(t, f.svc.Revoke(ctx, doc.ID, audit.Entry{}), ErrAlreadyRevoked)

	// Firma intacta, pero revocación domina.
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	res, err := f.svc.Verify(ctx, raw, audit.Entry{})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "revoked", res.Status)
	require.Equal(t, f.did, res.DID)
	require.Equal(t, f.subAddr, res.LinkedAddress)
}

func TestRevokeUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.svc.Revoke(context.Background(), "urn:uuid:nope", audit.Entry{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyExpiredDominatesSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	issuerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	st := memory.New(10 * time.Minute)
	svc := NewService(Deps{
		Store:     st,
		Audit:     audit.NewService(st),
		Registry:  stubRegistry{registered: true},
		IssuerKey: issuerKey,
		Validity:  time.Millisecond,
	})

	holder, err := crypto.GenerateKey()
	require.NoError(t, err)
	holderDID := did.Format(ethsig.AddressOf(holder))
	challenge := "Link my GSY DEX account at 2026-08-31T00:00:00Z"
	ethSig, err := ethsig.Sign(challenge, holder)
	require.NoError(t, err)
	subAddr, subSig := substrateFixture(t, subsig.WrapMessage(challenge))

	doc, err := svc.Issue(ctx, holderDID, subAddr, challenge, ethSig, subSig, audit.Entry{})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	res, err := svc.Verify(ctx, raw, audit.Entry{})
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, "expired", res.Status)
}

func TestListByDIDAllowsMultiple(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.NoError(t, err)

	list, err := f.svc.ListByDID(ctx, f.did)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestCanonicalizeIsOrderStable(t *testing.T) {
	t.Parallel()

	a, err := Canonicalize(map[string]any{"b": 1, "a": map[string]any{"z": true, "y": "x"}})
	require.NoError(t, err)
	b, err := Canonicalize(map[string]any{"a": map[string]any{"y": "x", "z": true}, "b": 1})
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
	require.Equal(t, `{"a":{"y":"x","z":true},"b":1}`, string(a))
}

func TestCredentialOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.svc.Issue(ctx, f.did, f.subAddr, f.challenge, f.ethSig, f.subSig, audit.Entry{})
	require.NoError(t, err)

	owner, err := f.svc.Owner(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, f.did, owner)

	_, err = f.svc.Owner(ctx, "urn:uuid:missing")
	require.ErrorIs(t, err, ErrNotFound)
}
