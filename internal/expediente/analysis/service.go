package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"expediente/internal/expediente/metrics"
	"expediente/internal/expediente/models"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/dates"
	"expediente/pkg/requestcontext"
)

const tracerName = "expediente/analysis"

// Service wraps an Analyzer with logging, metrics and tracing.
type Service struct {
	analyzer *Analyzer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// NewService constructs a Service. A nil analyzer gets the defaults.
func NewService(analyzer *Analyzer, opts ...Option) *Service {
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	s := &Service{
		analyzer: analyzer,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyzer returns the wrapped analyzer.
func (s *Service) Analyzer() *Analyzer { return s.analyzer }

// Analyze runs one analysis. A request without a reference date is
// evaluated at the request time carried by ctx. The returned error is only
// set when ctx is done before the analysis starts; structural failures are
// reported in the result with Success=false.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "analysis cancelled")
	}
	if req.AsOf.IsZero() {
		req.AsOf = dates.Day(requestcontext.Now(ctx))
	}

	ctx, span := s.tracer.Start(ctx, "expediente.analyze", trace.WithAttributes(
		attribute.Int("expediente.files", len(req.Files)),
		attribute.String("expediente.as_of", req.AsOf.Format(time.DateOnly)),
	))
	defer span.End()

	start := time.Now()
	res := s.analyzer.Analyze(req)
	elapsed := time.Since(start)
	res.Metadata.DurationMS = elapsed.Milliseconds()
	s.metrics.ObserveAnalyzeLatency(elapsed)
	for kind, n := range res.Metadata.DocumentsByKind {
		s.metrics.AddDocuments(string(kind), n)
	}

	span.SetAttributes(attribute.String("expediente.analysis_id", res.Metadata.AnalysisID))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
		s.metrics.IncrementAnalysis("rejected", "")
		s.logger.InfoContext(ctx, "expediente analysis rejected",
			"request_id", requestcontext.RequestID(ctx),
			"analysis_id", res.Metadata.AnalysisID,
			"files", len(req.Files),
			"error", res.Error,
		)
		return res, nil
	}

	for _, pass := range res.Metadata.Unavailable {
		s.metrics.IncrementPassFailure(pass)
		s.logger.WarnContext(ctx, "sub-analysis unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"analysis_id", res.Metadata.AnalysisID,
			"pass", pass,
			"error", res.PassError(pass),
		)
	}
	for kind, n := range res.Findings() {
		s.metrics.AddFindings(kind, n)
	}
	risk := string(res.RiskLevel())
	s.metrics.IncrementAnalysis("ok", risk)
	span.SetAttributes(
		attribute.String("expediente.risk", risk),
		attribute.Int("expediente.chain_links", len(res.OwnershipChain)),
	)
	s.logger.InfoContext(ctx, "expediente analyzed",
		"request_id", requestcontext.RequestID(ctx),
		"analysis_id", res.Metadata.AnalysisID,
		"risk_level", risk,
		"links", len(res.OwnershipChain),
		"certificates", res.Metadata.DocumentsByKind[models.KindCertificate],
		"unavailable", res.Metadata.Unavailable,
		"duration", elapsed,
	)
	return res, nil
}
