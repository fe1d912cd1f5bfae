package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
	"github.com/aretw0/sluice/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretSnapshot(id string) *domain.Snapshot {
	cc := domain.NewCommunicationContext(context.Background(), id, &domain.Request{
		Path:   "/vault",
		Header: http.Header{"Authorization": []string{"Bearer abc"}},
	})
	cc.Data.Items["secret"] = "my-secret-sauce"
	cc.Run.Index = 2
	cc.Run.Status = domain.StatusSuspended
	return cc.Snapshot()
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := NewMockStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "r1", secretSnapshot("r1")))

	stored, err := underlying.Load(ctx, "r1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)
	assert.Nil(t, stored.Data, "pipeline data must be hidden")
	assert.Nil(t, stored.Request, "request must be hidden")
	assert.Equal(t, domain.StatusSuspended, stored.Run.Status)
	assert.Zero(t, stored.Run.Index)

	loaded, err := secure.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.Data.Items["secret"])
	assert.Equal(t, 2, loaded.Run.Index)
	assert.Equal(t, "Bearer abc", loaded.Request.Header.Get("Authorization"))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := NewMockStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldMW, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, oldMW(underlying).Save(ctx, "r1", secretSnapshot("r1")))

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(underlying).Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.Data.Items["secret"])

	wrong, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = wrong(underlying).Load(ctx, "r1")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlying := NewMockStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", secretSnapshot("plain")))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).Load(ctx, "plain")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_KeySize(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	ports.RunStoreContract(t, mw(NewMockStore()))
}
