package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/klix-code/klix/internal/agent"
	"github.com/klix-code/klix/internal/cli"
	"github.com/klix-code/klix/internal/config"
	"github.com/klix-code/klix/internal/db"
	"github.com/klix-code/klix/internal/llm"
	"github.com/klix-code/klix/internal/logging"
	"github.com/klix-code/klix/internal/repository"
	"github.com/klix-code/klix/internal/service"
	"github.com/klix-code/klix/internal/tools"
	"github.com/klix-code/klix/internal/trace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logging.Configure(logging.DefaultOptions())

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// DB path: env var or default ~/.klix/klix.db
	dbPath := os.Getenv("KLIX_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".klix", "klix.db")
	}

	database, err := db.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	taskRepo := repository.NewSQLiteTaskRepo(database)
	updateRepo := repository.NewSQLiteUpdateLogRepo(database)
	memoryRepo := repository.NewSQLiteMemoryRepo(database)
	traceRepo := repository.NewSQLiteTraceRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	observer := service.NewSlogUseCaseObserver()
	taskSvc := service.NewTaskService(uow, taskRepo, updateRepo, observer)
	memorySvc := service.NewMemoryService(memoryRepo, observer)

	registry := tools.NewRegistry().WithCache(128)
	tools.RegisterFilesystemTools(registry, cfg.ProjectRoot)
	tools.RegisterShellTools(registry, cfg.ProjectRoot)
	tools.RegisterProjectTools(registry, cfg.ProjectRoot)
	tools.RegisterNetworkTools(registry)
	registry.MustRegister(agent.MemorySaveTool(memorySvc))

	llmCfg := llm.LoadConfig()
	llmCfg.Provider = string(cfg.Provider)
	llmCfg.Model = cfg.CurrentModel()
	if cfg.GeminiAPIKey != "" {
		llmCfg.APIKey = cfg.GeminiAPIKey
	}
	var llmObserver llm.Observer = llm.NewSlogObserver()
	if llmCfg.LogCalls {
		llmObserver = llm.NewLogObserver(os.Stderr)
	}
	client, err := llm.New(llmCfg, llmObserver)
	if err != nil {
		return err
	}

	app := &cli.App{
		Config:   cfg,
		Tasks:    taskSvc,
		Memory:   memorySvc,
		Traces:   traceRepo,
		Recorder: trace.NewRecorder(traceRepo, cfg.EnableTraces),
		Registry: registry,
		LLM:      client,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}

	return cli.NewRootCmd(app).Execute()
}
