package orchestrator

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"

	tmodels "aegis/internal/treasury/models"
	dErrors "aegis/pkg/domain-errors"
)

// spanRecorder records span names and delegates to a no-op tracer.
type spanRecorder struct {
	embedded.Tracer

	inner trace.Tracer
	mu    sync.Mutex
	names []string
}

func newSpanRecorder() *spanRecorder {
	return &spanRecorder{inner: noop.NewTracerProvider().Tracer(tracerName)}
}

func (r *spanRecorder) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	return r.inner.Start(ctx, name, opts...)
}

func (r *spanRecorder) spans() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func (s *ServiceSuite) TestDeclareEventSpans() {
	s.Run("funded declaration opens the declare and release spans", func() {
		tracer := newSpanRecorder()
		svc := s.newService(WithTracer(tracer))
		s.mockGovernance.EXPECT().CreateInstance(gomock.Any(), factory, wildfire).Return(s.instance, nil)
		s.mockTreasury.EXPECT().ReleaseInitialFunding(gomock.Any(), factory, gomock.Any(), wildfire).
			Return(tmodels.NewReleaseResult(s.instance.ID.Identity(), "High", 500_000, 0), nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		_, _, err := svc.DeclareEvent(s.ctx, wildfire, nil)
		s.Require().NoError(err)
		s.Equal([]string{"orchestrator.declare_event", "treasury.release_initial_funding"}, tracer.spans())
	})

	s.Run("failed creation never reaches the treasury span", func() {
		tracer := newSpanRecorder()
		svc := s.newService(WithTracer(tracer))
		s.mockGovernance.EXPECT().CreateInstance(gomock.Any(), factory, wildfire).
			Return(nil, dErrors.New(dErrors.CodeConflict, "instance already exists"))

		_, _, err := svc.DeclareEvent(s.ctx, wildfire, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeDownstreamFailure))
		s.Equal([]string{"orchestrator.declare_event"}, tracer.spans())
	})
}
