package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"

	"github.com/aretw0/storyweave/pkg/adapters/memory"
	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/aretw0/storyweave/pkg/persistence/middleware"
	"github.com/aretw0/storyweave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretState() *domain.State {
	s := domain.NewState("s1", "start", []domain.Variable{
		{ID: "pw", Name: "password", Value: domain.String("hunter2")},
		{ID: "pin", Name: "pin_code", Value: domain.Number(1234)},
		{ID: "gold", Name: "gold", Value: domain.Number(7)},
	})
	s.Graph = "vault"
	return s
}

func encrypted(t *testing.T, store ports.StateStore, cfg middleware.EncryptionConfig) ports.StateStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(store)
}

func TestEncryption_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	original := secretState()
	require.NoError(t, secure.Save(ctx, "s1", original))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "vault", raw.Graph, "listings still see the graph")
	assert.Empty(t, raw.CurrentNodeID)
	_, leaked := raw.Variable("pw")
	assert.False(t, leaked)

	loaded, err := secure.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	ids, err := secure.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
	require.NoError(t, secure.Delete(ctx, "s1"))
	_, err = secure.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEncryption_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	require.NoError(t, encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey}).Save(ctx, "s1", secretState()))

	rotated := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	loaded, err := rotated.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "vault", loaded.Graph)

	withoutOld := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey})
	_, err = withoutOld.Load(ctx, "s1")
	assert.ErrorContains(t, err, "decryption failed with all available keys")
}

func TestEncryption_PlainStateRejected(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, "s1", secretState()))

	_, err := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).Load(ctx, "s1")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryption_BadKeys(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorContains(t, err, "active key must be 32 bytes")

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t), FallbackKeys: [][]byte{{1}}})
	assert.ErrorContains(t, err, "fallback key 0")
}

func TestEncryption_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = middleware.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey("c2hvcnQ=")
	assert.Error(t, err)
}

func TestRedaction(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	mw, err := middleware.NewRedactionMiddleware([]string{"(?i)password", "^pin"})
	require.NoError(t, err)
	store := mw(underlying)

	original := secretState()
	require.NoError(t, store.Save(ctx, "s1", original))

	pw, _ := original.Variable("pw")
	assert.Equal(t, domain.String("hunter2"), pw.Value, "the caller's state is untouched")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	pw, _ = loaded.Variable("pw")
	pin, _ := loaded.Variable("pin")
	gold, _ := loaded.Variable("gold")
	assert.Equal(t, domain.String(middleware.Mask), pw.Value)
	assert.Equal(t, domain.Number(0), pin.Value)
	assert.Equal(t, domain.Number(7), gold.Value)

	_, err = middleware.NewRedactionMiddleware([]string{"("})
	assert.ErrorContains(t, err, "invalid redaction pattern")
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	redact, err := middleware.NewRedactionMiddleware([]string{"password"})
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, redact, encrypt)
	require.NoError(t, store.Save(ctx, "s1", secretState()))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	pw, _ := loaded.Variable("pw")
	assert.Equal(t, domain.String(middleware.Mask), pw.Value, "redaction runs before encryption")
}
