package contrib

import (
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// RequestIDHeader is the header used to correlate requests.
const RequestIDHeader = "X-Request-ID"

// RequestID copies the request id onto the response, falling back to the
// context id.
type RequestID struct{}

// Initialize registers the step right after begin.
func (RequestID) Initialize(b ports.Builder) {
	b.Use("request.id", func(cc *domain.CommunicationContext) (domain.Continuation, error) {
		id := cc.Request.Header.Get(RequestIDHeader)
		if id == "" {
			id = cc.ID
		}
		cc.Response.Header.Set(RequestIDHeader, id)
		return domain.ContinueSignal, nil
	}).After(domain.StageBegin).Before(domain.StageAuthentication)
}
