package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"sheetfill/internal/classify"
	"sheetfill/internal/config"
	"sheetfill/internal/model"
	"sheetfill/internal/report"
	"sheetfill/internal/sheet"
)

// Worker processes a single workbook extraction job.
type Worker struct {
	classifier classify.Classifier
	analyzer   sheet.Analyzer
	cfg        config.Config
	log        *slog.Logger
}

func NewWorker(classifier classify.Classifier, analyzer sheet.Analyzer, cfg config.Config, log *slog.Logger) *Worker {
	return &Worker{
		classifier: classifier,
		analyzer:   analyzer,
		cfg:        cfg,
		log:        log,
	}
}

// ClassifyConfig maps the service configuration onto the batching
// parameters of the classification core.
func ClassifyConfig(cfg config.Config) classify.Config {
	return classify.Config{
		BatchSize:    cfg.BatchSize,
		Overlap:      cfg.BatchOverlap,
		MinBatchSize: cfg.MinBatchSize,
		MaxBatches:   cfg.MaxBatches,
		MaxFailures:  cfg.MaxFailures,
		MaxAttempts:  cfg.MaxAttempts,
		BaseDelay:    cfg.RetryDelay,
	}
}

// Process runs the full extraction pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	job.SetStatus(StatusAnalyzing, "opening")
	data := job.FileData()
	job.SetContentHash(ContentHashHex(data))

	wb, err := sheet.OpenReader(bytes.NewReader(data), job.Filename)
	if err != nil {
		log.Error("workbook open failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "opening")
		return
	}
	defer wb.Close()
	job.SetTotalSheets(len(wb.SheetNames()))

	classifier := w.classifier
	if job.NoLLMHierarchy {
		classifier = nil
	}
	pl := classify.NewPipeline(classifier, ClassifyConfig(w.cfg), log)

	ex := sheet.NewExtractor(wb, w.analyzer, pl, log)
	ex.ContentSheet = job.ContentSheet
	ex.OnSheet = func(name string, res *model.ExtractionResult) {
		job.AddSheetProgress(res.TotalExtracted, res.Statistics.FillableQuestions)
	}

	job.SetStatus(StatusClassifying, "extracting")
	result, err := ex.Run(ctx)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}

	job.SetStatus(StatusReporting, "saving")
	outDir, err := report.SaveResults(result, w.cfg.OutputDir)
	if err != nil {
		log.Error("save failed", "error", err)
		job.AddError(fmt.Sprintf("save: %s", err))
		job.SetResult(result)
		job.SetStatus(StatusPartial, "saving")
		return
	}
	log.Info("extraction saved", "dir", outDir)

	job.SetResult(result)
	if len(job.Snapshot().Progress.Errors) > 0 {
		job.SetStatus(StatusPartial, "done")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}
