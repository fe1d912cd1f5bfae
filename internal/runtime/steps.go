package runtime

import "github.com/aretw0/sluice/pkg/domain"

type step struct {
	id domain.Identity
	fn domain.StepFunc // nil for stage markers
}

// StepList is the finalized order of a pipeline. It is immutable and safe
// for concurrent use.
type StepList struct {
	steps      []step
	positions  map[domain.Identity]int
	renderFrom int
}

func newStepList(order []domain.Identity, fns map[domain.Identity]domain.StepFunc, renderAfter domain.Identity) *StepList {
	l := &StepList{
		steps:      make([]step, len(order)),
		positions:  make(map[domain.Identity]int, len(order)),
		renderFrom: -1,
	}
	for i, id := range order {
		l.steps[i] = step{id: id, fn: fns[id]}
		l.positions[id] = i
	}
	if pos, ok := l.positions[renderAfter]; ok && renderAfter != "" {
		l.renderFrom = pos + 1
	}
	return l
}

// Len returns the number of positions, stage markers included.
func (l *StepList) Len() int {
	return len(l.steps)
}

// Position returns where id sits in the list.
func (l *StepList) Position(id domain.Identity) (int, bool) {
	pos, ok := l.positions[id]
	return pos, ok
}

// RenderFrom returns the position a RenderNow signal jumps to, or -1 when the
// pipeline has no render section.
func (l *StepList) RenderFrom() int {
	return l.renderFrom
}

// Identities returns every identity in execution order.
func (l *StepList) Identities() []domain.Identity {
	out := make([]domain.Identity, len(l.steps))
	for i, s := range l.steps {
		out[i] = s.id
	}
	return out
}

// Contributors returns the contributor identities in execution order,
// without stage markers.
func (l *StepList) Contributors() []domain.Identity {
	var out []domain.Identity
	for _, s := range l.steps {
		if s.fn != nil {
			out = append(out, s.id)
		}
	}
	return out
}

// Steps describes every position of the list.
func (l *StepList) Steps() []domain.StepInfo {
	out := make([]domain.StepInfo, len(l.steps))
	for i, s := range l.steps {
		out[i] = domain.StepInfo{Position: i, ID: s.id, Stage: s.fn == nil}
	}
	return out
}
