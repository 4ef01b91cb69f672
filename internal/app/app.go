// Package app assembles the orchestrator from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/tutorflow/internal/config"
	"github.com/abhisek/tutorflow/internal/extract"
	"github.com/abhisek/tutorflow/internal/learner"
	"github.com/abhisek/tutorflow/internal/llm"
	"github.com/abhisek/tutorflow/internal/orchestrator"
	"github.com/abhisek/tutorflow/internal/router"
	"github.com/abhisek/tutorflow/internal/store"
	"github.com/abhisek/tutorflow/internal/tools"
)

// Options holds the collaborators App needs.
type Options struct {
	Config *config.Config
	// Store records LLM and orchestration events. May be nil.
	Store *store.Store
	// Invoker runs the tools. Defaults to tools.NewMockInvoker.
	Invoker tools.Invoker
	// Provider overrides the configured LLM provider.
	Provider llm.Provider
	Logger   *slog.Logger
}

// App is a fully wired orchestrator.
type App struct {
	Controller *orchestrator.Controller
	Router     *router.Router
	Extractor  *extract.Extractor
	Pool       *orchestrator.Pool

	// Offline is true when no LLM provider is configured and the keyword
	// router and phrase extractor are in use.
	Offline bool
}

// New builds an App. Without provider credentials it falls back to the
// offline classifier and candidate source.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := opts.Provider
	if provider == nil && !cfg.Offline() {
		var events llm.EventRecorder
		if opts.Store != nil {
			events = opts.Store
		}
		p, err := llm.NewProvider(ctx, cfg.LLMSettings(), events, logger)
		if err != nil {
			return nil, fmt.Errorf("create llm provider: %w", err)
		}
		provider = p
	}

	routerCfg, classifierCfg := cfg.RouterSettings()
	extractCfg := cfg.ExtractSettings()

	var (
		classifier router.Classifier
		source     extract.CandidateSource
	)
	if provider != nil {
		classifier = router.NewLLMClassifier(provider, classifierCfg)
		source = extract.NewLLMSource(provider, extractCfg)
		logger.Info("llm provider ready", slog.String("model", provider.ModelID()))
	} else {
		classifier = router.NewKeywordClassifier()
		source = extract.PhraseSource{}
		logger.Warn("LLM provider not configured, running offline with keyword routing")
	}

	var profiles learner.Resolver = learner.MockResolver{}
	if cfg.ProfilesDir != "" {
		fr, err := learner.LoadFixtures(cfg.ProfilesDir, learner.MockResolver{})
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		logger.Info("learner profiles loaded", slog.Int("count", fr.Len()))
		profiles = fr
	}

	invoker := opts.Invoker
	if invoker == nil {
		invoker = tools.NewMockInvoker(logger)
	}

	r := router.New(classifier, routerCfg, logger)
	x := extract.New(source, extractCfg, logger)

	orchOpts := orchestrator.Options{Profiles: profiles, Logger: logger}
	if opts.Store != nil {
		orchOpts.Events = opts.Store
	}
	ctrl := orchestrator.New(r, x, invoker, orchOpts)

	return &App{
		Controller: ctrl,
		Router:     r,
		Extractor:  x,
		Pool:       orchestrator.NewPool(ctrl, cfg.Workers),
		Offline:    provider == nil,
	}, nil
}
