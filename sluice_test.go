package sluice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cont(cc *domain.CommunicationContext) (domain.Continuation, error) {
	return domain.ContinueSignal, nil
}

type stubResolver map[string]any

func (r stubResolver) Resolve(ctx context.Context, capability string) (any, error) {
	v, ok := r[capability]
	if !ok {
		return nil, domain.ErrCapabilityNotFound
	}
	if err, isErr := v.(error); isErr {
		return nil, err
	}
	return v, nil
}

func TestEngine_LazyFinalizeAndAdvance(t *testing.T) {
	eng, err := sluice.New(sluice.WithStages(domain.StageBegin))
	require.NoError(t, err)

	eng.Use("A", cont).After(domain.StageBegin)
	eng.Use("B", cont).After("A")
	eng.Use("C", cont)

	cc := eng.NewContext(context.Background(), &domain.Request{Method: "GET", Path: "/"})
	assert.NotEmpty(t, cc.ID)

	outcome, err := eng.Advance(cc)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, outcome)
	assert.Equal(t, []domain.Identity{"A", "B", "C"}, cc.Run.Trace)

	steps, err := eng.Steps()
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.True(t, steps[0].Stage)
	assert.Equal(t, domain.StageBegin, steps[0].ID)

	// First request finalized the pipeline.
	assert.ErrorIs(t, eng.Use("late", cont).Err(), domain.ErrPipelineFinalized)
}

func TestEngine_CycleFailsEveryRequest(t *testing.T) {
	eng, err := sluice.New(sluice.WithStages())
	require.NoError(t, err)
	eng.Use("a", cont).After("b")
	eng.Use("b", cont).After("a")

	_, err = eng.Finalize()
	var cycle *domain.CyclicOrderingError
	require.ErrorAs(t, err, &cycle)

	outcome, err := eng.Advance(eng.NewContext(context.Background(), nil))
	assert.Equal(t, domain.OutcomeAborted, outcome)
	assert.ErrorAs(t, err, &cycle)
}

func TestEngine_Register(t *testing.T) {
	eng, err := sluice.New()
	require.NoError(t, err)

	err = eng.Register(ports.ContributorFunc(func(b ports.Builder) {
		b.Use("auth", cont).During(domain.StageAuthentication)
	}))
	require.NoError(t, err)

	err = eng.Register(ports.ContributorFunc(func(b ports.Builder) {
		b.Use("auth", cont)
	}))
	var dup *domain.DuplicateContributorError
	assert.ErrorAs(t, err, &dup)
}

func TestEngine_Resolve(t *testing.T) {
	boom := errors.New("no database")
	resolver := stubResolver{
		"logging": domain.StepFunc(cont),
		"plain":   func(cc *domain.CommunicationContext) (domain.Continuation, error) { return domain.ContinueSignal, nil },
		"contrib": ports.ContributorFunc(func(b ports.Builder) { b.Use("from-contrib", cont) }),
		"broken":  boom,
		"wrong":   42,
	}

	eng, err := sluice.New(sluice.WithStages())
	require.NoError(t, err)
	require.NoError(t, eng.Resolve(context.Background(), resolver, "logging", "plain", "contrib"))

	var cerr *domain.ContributorConstructionError
	err = eng.Resolve(context.Background(), resolver, "broken")
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "broken", cerr.Capability)
	assert.ErrorIs(t, err, boom)

	err = eng.Resolve(context.Background(), resolver, "wrong")
	assert.ErrorAs(t, err, &cerr)

	err = eng.Resolve(context.Background(), resolver, "missing")
	assert.ErrorIs(t, err, domain.ErrCapabilityNotFound)

	steps, err := eng.Steps()
	require.NoError(t, err)
	ids := make([]domain.Identity, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []domain.Identity{"logging", "plain", "from-contrib"}, ids)
}

func TestEngine_Close(t *testing.T) {
	var closed []string
	eng, err := sluice.New(
		sluice.WithCloser(func() error { closed = append(closed, "first"); return nil }),
		sluice.WithCloser(func() error { closed = append(closed, "second"); return nil }),
	)
	require.NoError(t, err)
	eng.Use("a", cont)

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())
	assert.Equal(t, []string{"second", "first"}, closed)

	_, err = eng.Advance(eng.NewContext(context.Background(), nil))
	assert.ErrorIs(t, err, domain.ErrEngineClosed)

	res := <-eng.AdvanceAsync(eng.NewContext(context.Background(), nil))
	assert.ErrorIs(t, res.Err, domain.ErrEngineClosed)
}

func TestEngine_AdvanceAsync(t *testing.T) {
	eng, err := sluice.New()
	require.NoError(t, err)
	eng.Use("a", cont).During(domain.StageBegin)

	res := <-eng.AdvanceAsync(eng.NewContext(context.Background(), nil))
	require.NoError(t, res.Err)
	assert.Equal(t, domain.OutcomeCompleted, res.Outcome)
}
