package middleware_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := NewMockStore()
	mw, err := middleware.NewPIIMiddleware([]string{"(?i)password", "(?i)ssn", "(?i)^authorization$"})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	cc := domain.NewCommunicationContext(ctx, "pii", &domain.Request{
		Header: http.Header{"Authorization": []string{"Bearer abc"}, "Accept": []string{"application/json"}},
	})
	cc.Data.Items["username"] = "jdoe"
	cc.Data.Items["user_password"] = "secret123"
	cc.Data.Items["details"] = map[string]any{"address": "123 St", "ssn_number": "999-99-9999"}
	snap := cc.Snapshot()

	require.NoError(t, secure.Save(ctx, "pii", snap))

	// The live context is untouched.
	assert.Equal(t, "secret123", cc.Data.Items["user_password"])
	assert.Equal(t, "Bearer abc", cc.Request.Header.Get("Authorization"))

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Data.Items["username"])
	assert.Equal(t, "***", stored.Data.Items["user_password"])
	details := stored.Data.Items["details"].(map[string]any)
	assert.Equal(t, "123 St", details["address"])
	assert.Equal(t, "***", details["ssn_number"])
	assert.Equal(t, "***", stored.Request.Header.Get("Authorization"))
	assert.Equal(t, "application/json", stored.Request.Header.Get("Accept"))
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	underlying := NewMockStore()
	pii, err := middleware.NewPIIMiddleware([]string{"secret"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	// Masking happens before sealing.
	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "r", secretSnapshot("r")))

	loaded, err := store.Load(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Data.Items["secret"])
}
