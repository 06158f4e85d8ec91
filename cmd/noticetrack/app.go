package main

import (
	"context"
	"fmt"

	"github.com/oslri/noticetrack/internal/config"
	"github.com/oslri/noticetrack/internal/correlation"
	"github.com/oslri/noticetrack/internal/db"
	"github.com/oslri/noticetrack/internal/enrichment"
	"github.com/oslri/noticetrack/internal/ingestion"
	"github.com/oslri/noticetrack/internal/reconcile"
	"github.com/oslri/noticetrack/internal/repository"
	"github.com/oslri/noticetrack/internal/stats"
)

// app bundles the wired repositories and engines every subcommand needs.
type app struct {
	cfg  config.Config
	conn *db.Connection

	notices       repository.NoticeRepository
	submissions   repository.SubmissionRepository
	verifications repository.VerificationRepository
	outcomes      repository.OutcomeRepository
	preferences   repository.PreferenceRepository
	importLogs    repository.ImportLogRepository

	engine     *correlation.Engine
	detector   *reconcile.Detector
	aggregator *stats.Aggregator
	enricher   *enrichment.Engine
	importer   *ingestion.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		cfg:           cfg,
		conn:          conn,
		notices:       repository.NewNoticeRepository(conn.Pool),
		submissions:   repository.NewSubmissionRepository(conn.Pool),
		verifications: repository.NewVerificationRepository(conn.Pool),
		outcomes:      repository.NewOutcomeRepository(conn.Pool),
		preferences:   repository.NewPreferenceRepository(conn.Pool),
		importLogs:    repository.NewImportLogRepository(conn.Pool),
	}

	a.engine = correlation.NewEngine(a.submissions, a.verifications, a.outcomes, cfg.Lookups, cfg.Windows, nil)
	a.detector = reconcile.NewDetector(a.submissions, a.verifications, a.outcomes, cfg.Windows)
	a.aggregator = stats.NewAggregator(a.submissions, a.outcomes)
	a.enricher = enrichment.NewEngine(a.notices, a.submissions, a.verifications, a.outcomes, a.preferences)
	a.importer = ingestion.NewService(a.submissions, a.verifications, a.outcomes, a.preferences, a.importLogs)

	return a, nil
}

func (a *app) Close() {
	a.conn.Close()
}
