package domain

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Snapshot is the serializable form of a parked run.
type Snapshot struct {
	ID       string        `json:"id"`
	Request  *Request      `json:"request,omitempty"`
	Response *Response     `json:"response,omitempty"`
	Data     *PipelineData `json:"data,omitempty"`
	Run      *RunState     `json:"run,omitempty"`
	ParkedAt time.Time     `json:"parked_at"`

	// Sealed holds the encrypted form of the fields above when the snapshot
	// went through an encrypting store.
	Sealed string `json:"sealed,omitempty"`
}

// Snapshot captures the context for parking.
func (c *CommunicationContext) Snapshot() *Snapshot {
	s := &Snapshot{
		ID:       c.ID,
		Request:  c.Request,
		Response: c.Response,
		Data:     c.Data,
		Run:      c.Run.Clone(),
		ParkedAt: time.Now().UTC(),
	}
	return s
}

// Restore rebuilds a context from a snapshot, bound to ctx.
func Restore(ctx context.Context, s *Snapshot) *CommunicationContext {
	cc := NewCommunicationContext(ctx, s.ID, s.Request)
	if s.Response != nil {
		cc.Response = s.Response
		if cc.Response.Header == nil {
			cc.Response.Header = make(http.Header)
		}
	}
	if s.Data != nil {
		cc.Data = s.Data
		if cc.Data.Items == nil {
			cc.Data.Items = make(map[string]any)
		}
	}
	if s.Run != nil {
		cc.Run = s.Run.Clone()
	}
	return cc
}

// Clone returns a copy that shares no maps or slices with s. Item values
// themselves are copied shallowly.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Request != nil {
		r := *s.Request
		r.Header = s.Request.Header.Clone()
		r.Query = cloneValues(s.Request.Query)
		r.Body = cloneBytes(s.Request.Body)
		c.Request = &r
	}
	if s.Response != nil {
		r := *s.Response
		r.Header = s.Response.Header.Clone()
		r.Body = cloneBytes(s.Response.Body)
		c.Response = &r
	}
	if s.Data != nil {
		d := *s.Data
		if s.Data.Params != nil {
			d.Params = make(map[string]string, len(s.Data.Params))
			for k, v := range s.Data.Params {
				d.Params[k] = v
			}
		}
		if s.Data.Items != nil {
			d.Items = make(map[string]any, len(s.Data.Items))
			for k, v := range s.Data.Items {
				d.Items[k] = v
			}
		}
		if s.Data.Result != nil {
			res := *s.Data.Result
			d.Result = &res
		}
		c.Data = &d
	}
	c.Run = s.Run.Clone()
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
