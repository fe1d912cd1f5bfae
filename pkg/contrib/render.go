package contrib

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// JSONRenderer writes the operation result as the JSON response.
type JSONRenderer struct {
	Indent bool `mapstructure:"indent"`
}

// Initialize registers the renderer inside operation_result_invocation, the
// first phase of the render section.
func (j *JSONRenderer) Initialize(b ports.Builder) {
	b.Use("render.json", j.render).During(domain.StageOperationResultInvocation)
}

type errorBody struct {
	Error string `json:"error"`
}

func (j *JSONRenderer) render(cc *domain.CommunicationContext) (domain.Continuation, error) {
	res := cc.Data.Result
	if res == nil {
		return domain.ContinueSignal, nil
	}

	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	cc.Response.SetStatus(status)

	var body any
	switch {
	case res.Entity != nil:
		body = res.Entity
	case res.Reason != "":
		body = errorBody{Error: res.Reason}
	default:
		return domain.ContinueSignal, nil
	}

	var (
		b   []byte
		err error
	)
	if j.Indent {
		b, err = json.MarshalIndent(body, "", "  ")
	} else {
		b, err = json.Marshal(body)
	}
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	cc.Response.Header.Set("Content-Type", "application/json")
	cc.Response.Body = append(b, '\n')
	return domain.ContinueSignal, nil
}
