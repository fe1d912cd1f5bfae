package contrib

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// APIKey accepts requests carrying one of Keys in Header.
// Rejected requests get a 401 result and jump straight to rendering.
type APIKey struct {
	Header string   `mapstructure:"header"`
	Keys   []string `mapstructure:"keys"`
	// Skip lists path prefixes that need no key.
	Skip []string `mapstructure:"skip"`
}

// Initialize registers the check inside the authentication stage.
func (a *APIKey) Initialize(b ports.Builder) {
	b.Use("auth.apikey", a.check).During(domain.StageAuthentication)
}

func (a *APIKey) check(cc *domain.CommunicationContext) (domain.Continuation, error) {
	for _, prefix := range a.Skip {
		if strings.HasPrefix(cc.Request.Path, prefix) {
			return domain.ContinueSignal, nil
		}
	}

	header := a.Header
	if header == "" {
		header = "X-API-Key"
	}
	got := cc.Request.Header.Get(header)
	for _, k := range a.Keys {
		if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(k)) == 1 {
			return domain.ContinueSignal, nil
		}
	}

	cc.Response.Header.Set("WWW-Authenticate", "ApiKey header=\""+header+"\"")
	cc.Data.Result = &domain.OperationResult{
		StatusCode: http.StatusUnauthorized,
		Reason:     "missing or invalid api key",
	}
	return domain.RenderNow, nil
}
