package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/async"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/entity"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/extract"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/glossary"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/lock"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/translator"
)

// TranslateDeps groups the collaborators of the translate stage.
type TranslateDeps struct {
	Files     repository.FileTranslationRepository
	Prompts   repository.PromptRepository
	Source    extract.SourceChecker
	Extractor extract.TextExtractor
	Entities  llm.EntityExtractor
	Jobs      JobClient
	Store     storage.BlobStore
	Layout    storage.Layout
	Locker    lock.Locker
}

// TranslateStage runs extraction, entity extraction, glossary build, job
// submit and poll for one landing-zone file, recording the outcome.
type TranslateStage struct {
	TranslateDeps
	Instruction string // used when the record names no prompt
	Examples    []llm.FewShot
	LockTTL     time.Duration
	Now         Clock
	Logger      *slog.Logger
}

func NewTranslateStage(deps TranslateDeps, logger *slog.Logger) *TranslateStage {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewMemory()
	}
	return &TranslateStage{
		TranslateDeps: deps,
		Instruction:   llm.DefaultInstruction,
		LockTTL:       15 * time.Minute,
		Now:           time.Now,
		Logger:        logger,
	}
}

// Handle lets the stage drain an async.WorkerQueue.
func (s *TranslateStage) Handle(ctx context.Context, job async.Job) error {
	return s.Run(ctx, job.FileName)
}

// glossaryState is what has been persisted of the glossary so far.
type glossaryState struct {
	path    *string
	content *string
}

// Run translates one file. Every failure after the record is known ends in a
// failed status write; a concurrent run for the same file is skipped.
func (s *TranslateStage) Run(ctx context.Context, fileName string) error {
	log := s.Logger.With("file_name", fileName, "req_id", common.RequestIDFromContext(ctx))

	if !constants.IsAllowed(fileName) {
		log.Info("translate.skipped.unsupported")
		return common.Errorf(common.ErrUnsupportedFormat, "%s", fileName)
	}

	release, err := s.Locker.Acquire(ctx, "translate:"+fileName, s.LockTTL)
	if errors.Is(err, lock.ErrHeld) {
		log.Warn("translate.skipped.duplicate")
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer release()

	start := time.Now()
	source := s.Layout.LandingURL(fileName)

	exists, err := s.Source.Exists(ctx, source)
	if err != nil {
		return s.fail(ctx, log, fileName, glossaryState{}, "source_check", err)
	}
	if !exists {
		return s.fail(ctx, log, fileName, glossaryState{}, "source_check",
			fmt.Errorf("source file does not exist: %w", common.ErrNotFound))
	}

	meta, err := s.Files.GetMetadata(ctx, fileName)
	if err != nil {
		log.Error("translate.metadata.failed", "error", err)
		return err
	}

	doc, err := s.Extractor.ExtractText(ctx, source)
	if err != nil {
		return s.fail(ctx, log, fileName, glossaryState{}, "extract", err)
	}

	entities, err := s.Entities.ExtractEntities(ctx, llm.EntityRequest{
		Text:        doc.Text,
		Instruction: s.instruction(ctx, log, meta.PromptID),
		Examples:    s.Examples,
		FileName:    fileName,
	})
	if err != nil {
		return s.fail(ctx, log, fileName, glossaryState{}, "entities", err)
	}

	exclusions := glossary.SplitTerms(meta.ExclusionText)
	g, err := glossary.Build(glossary.Merge(entities, exclusions))
	if err != nil {
		return s.fail(ctx, log, fileName, glossaryState{}, "glossary", err)
	}
	glossaryName := glossary.ObjectName(constants.BaseName(fileName))
	glossaryKey := s.Layout.Key(s.Layout.GlossaryPrefix, glossaryName)
	digest := map[string]string{storage.MetaDigest: storage.Digest(g.CSV)}
	if err := s.Store.Put(ctx, glossaryKey, bytes.NewReader(g.CSV), int64(len(g.CSV)), "text/csv", digest); err != nil {
		return s.fail(ctx, log, fileName, glossaryState{}, "glossary_upload", err)
	}
	gs := glossaryState{path: strPtr(s.Layout.GlossaryURL(glossaryName)), content: strPtr(string(g.JSON))}
	log.Info("translate.glossary.ok",
		"entities", len(entities),
		"exclusions", len(exclusions),
		"rows", len(g.Entries),
	)

	target := s.Layout.TranslatedURL(fileName)
	job, err := s.Jobs.Submit(ctx, translator.BatchRequest{
		SourceURL:    source,
		TargetURL:    target,
		GlossaryURL:  *gs.path,
		FromLanguage: meta.FromLanguage,
		ToLanguage:   meta.ToLanguage,
	})
	if err != nil {
		return s.fail(ctx, log, fileName, gs, "submit", err)
	}

	if err := s.Files.UpdateTranslation(ctx, fileName, entity.TranslationFacet{
		At:              s.Now(),
		Status:          constants.StatusInProgress,
		GlossaryPath:    gs.path,
		GlossaryStatus:  constants.StatusDone,
		GlossaryContent: gs.content,
	}); err != nil {
		log.Warn("translate.progress_write.failed", "error", err)
	}

	res, err := s.Jobs.Poll(ctx, job)
	if err != nil {
		return s.fail(ctx, log, fileName, gs, "poll", err)
	}

	if err := s.Files.UpdateTranslation(ctx, fileName, entity.TranslationFacet{
		At:              s.Now(),
		Status:          constants.StatusDone,
		TranslatedPath:  strPtr(target),
		GlossaryPath:    gs.path,
		GlossaryStatus:  constants.StatusDone,
		GlossaryContent: gs.content,
	}); err != nil {
		log.Error("translate.record.failed", "error", err)
		return err
	}

	log.Info("translate.ok",
		"job_state", job.State,
		"remote_status", res.Status,
		"poll_attempts", res.Attempts,
		"pages", doc.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// instruction resolves the record's prompt, falling back to the default.
func (s *TranslateStage) instruction(ctx context.Context, log *slog.Logger, promptID *int64) string {
	if promptID == nil || s.Prompts == nil {
		return s.Instruction
	}
	p, err := s.Prompts.GetByID(ctx, *promptID)
	if err != nil {
		log.Warn("translate.prompt.fallback", "prompt_id", *promptID, "error", err)
		return s.Instruction
	}
	return p.PromptText
}

// fail records the terminal failure and returns cause. The write outlives a
// cancelled ctx so a timed-out job still leaves a failed row.
func (s *TranslateStage) fail(ctx context.Context, log *slog.Logger, fileName string, gs glossaryState, step string, cause error) error {
	log.Error("translate.failed", "step", step, "error", cause)

	facet := entity.TranslationFacet{
		At:             s.Now(),
		Status:         constants.StatusFailed,
		GlossaryStatus: constants.StatusFailed,
	}
	if gs.path != nil {
		facet.GlossaryStatus = constants.StatusDone
		facet.GlossaryPath = gs.path
		facet.GlossaryContent = gs.content
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Files.UpdateTranslation(wctx, fileName, facet); err != nil {
		log.Error("translate.failure_write.failed", "error", err)
		return errors.Join(cause, err)
	}
	return cause
}
