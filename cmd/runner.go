package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/lineitem-autofill/internal/autofill"
	"github.com/ginjaninja78/lineitem-autofill/internal/browser"
	"github.com/ginjaninja78/lineitem-autofill/internal/config"
	"github.com/ginjaninja78/lineitem-autofill/internal/converter"
	"github.com/ginjaninja78/lineitem-autofill/pkg/utils"
)

// runner carries one fill or watch session: conversion runs in parallel, the
// browser is opened on first use and filling is strictly sequential.
type runner struct {
	cfg      *config.MainConfig
	log      *zap.Logger
	profiles []*config.Profile
	forced   string
	dryRun   bool
	files    *utils.FileManager

	session *browser.Session
	engine  *autofill.Engine
}

func newRunner(cfg *config.MainConfig, log *zap.Logger, forcedProfile string, dryRun bool) (*runner, error) {
	profiles, err := config.LoadProfiles(cfg.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	log.Info("profiles loaded", zap.Int("count", len(profiles)))

	if forcedProfile != "" && profileFor(profiles, forcedProfile, "") == nil {
		return nil, fmt.Errorf("unknown profile %q", forcedProfile)
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.InputArchiveDir, cfg.ReportsDir)
	fm.ArchiveOnSuccess = !dryRun
	if err := fm.EnsureDirectories(); err != nil {
		return nil, err
	}

	return &runner{
		cfg:      cfg,
		log:      log,
		profiles: profiles,
		forced:   forcedProfile,
		dryRun:   dryRun,
		files:    fm,
	}, nil
}

// convertAll converts files concurrently, at most MaxConcurrency at a time.
// Results keep the order of files.
func (r *runner) convertAll(ctx context.Context, files []string) []converter.Result {
	results := make([]converter.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.MaxConcurrency, 1))
	for i, path := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = converter.Result{FilePath: path, Error: gctx.Err()}
				return nil
			}
			profile := profileFor(r.profiles, r.forced, path)
			if profile == nil {
				results[i] = converter.Result{FilePath: path, Error: errors.New("no matching profile")}
				return nil
			}
			results[i] = converter.New(path, profile, r.cfg, r.log).Run()
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		if res.Error != nil {
			r.log.Warn("conversion failed", zap.String("file", filepath.Base(res.FilePath)), zap.Error(res.Error))
			continue
		}
		r.log.Info("converted",
			zap.String("file", filepath.Base(res.FilePath)),
			zap.String("profile", res.Profile),
			zap.Int("items", res.Stats.PayloadsCreated),
			zap.Int("validation_errors", res.Stats.ValidationErrors),
			zap.Int("validation_warnings", res.Stats.ValidationWarnings))
	}
	return results
}

// process converts and fills files and writes the run summary.
func (r *runner) process(ctx context.Context, files []string) (utils.RunSummary, error) {
	summary := utils.RunSummary{StartTime: time.Now(), DryRun: r.dryRun}

	for _, res := range r.convertAll(ctx, files) {
		fs := fileSummary(res)
		fs.DryRun = r.dryRun
		if res.Error == nil && !r.dryRun {
			r.fill(ctx, res, &fs)
		}
		summary.Files = append(summary.Files, fs)
	}

	summary.EndTime = time.Now()
	name := utils.GenerateReportName(r.cfg.SummaryNameFormat, nil)
	path, err := utils.WriteSummaryLog(summary, r.cfg.ReportsDir, name)
	if err != nil {
		return summary, err
	}

	nFiles, failedFiles, rows, failedRows := summary.Totals()
	r.log.Info("run complete",
		zap.Int("files", nFiles),
		zap.Int("failed_files", failedFiles),
		zap.Int("items", rows),
		zap.Int("failed_items", failedRows),
		zap.String("summary", path))
	return summary, nil
}

// fill writes one converted file into the form and archives it when every
// row made it.
func (r *runner) fill(ctx context.Context, res converter.Result, fs *utils.FileSummary) {
	start := time.Now()
	defer func() { fs.Duration += time.Since(start) }()

	engine, err := r.engineFor(ctx)
	if err != nil {
		fs.Error = err.Error()
		return
	}

	log := r.log.With(zap.String("file", filepath.Base(res.FilePath)))
	outcomes, err := engine.FillBatch(ctx, res.Payloads, func(current, total int) {
		log.Info("line item done", zap.Int("current", current), zap.Int("total", total))
	})
	if err != nil {
		fs.Error = err.Error()
		return
	}

	for i, o := range outcomes {
		row := utils.RowSummary{Item: i + 1, Row: o.Row}
		if o.Err != nil {
			row.Error = o.Err.Error()
		} else {
			fs.Filled++
		}
		fs.Rows = append(fs.Rows, row)
	}

	if fs.Failed() {
		log.Warn("file left in place", zap.Int("filled", fs.Filled), zap.Int("items", fs.Payloads))
		return
	}
	archived, err := r.files.ArchiveInputFile(res.FilePath)
	if err != nil {
		log.Warn("failed to archive file", zap.Error(err))
		return
	}
	fs.ArchivePath = archived
}

// engineFor opens the browser session on first use.
func (r *runner) engineFor(ctx context.Context) (*autofill.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	session, err := browser.Open(ctx, browserConfig(r.cfg), r.log)
	if err != nil {
		return nil, err
	}
	page, err := session.FormPage(ctx)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	host := browser.NewHost(page, formLayout(r.cfg), r.log)
	r.session = session
	r.engine = autofill.New(host, engineOptions(r.cfg), r.log)
	return r.engine, nil
}

func (r *runner) close() {
	if r.session == nil {
		return
	}
	if err := r.session.Close(); err != nil {
		r.log.Warn("failed to close browser session", zap.Error(err))
	}
	r.session = nil
	r.engine = nil
}

func fileSummary(res converter.Result) utils.FileSummary {
	fs := utils.FileSummary{
		InputFile:          res.FilePath,
		Profile:            res.Profile,
		Payloads:           len(res.Payloads),
		ValidationErrors:   res.Stats.ValidationErrors,
		ValidationWarnings: res.Stats.ValidationWarnings,
		Duration:           res.Stats.ProcessingTime,
	}
	if res.Error != nil {
		fs.Error = res.Error.Error()
	}
	if res.Validation != nil {
		for _, ve := range res.Validation.Errors {
			fs.Findings = append(fs.Findings, ve.Error())
		}
	}
	return fs
}
