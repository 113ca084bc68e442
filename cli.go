package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"englishbuddy/config"
	"englishbuddy/config/database"
	"englishbuddy/internal/llm"
	"englishbuddy/internal/mailer"
	notebookService "englishbuddy/internal/notebook/service"
	storyService "englishbuddy/internal/story/service"
	tutorService "englishbuddy/internal/tutor/service"
	"englishbuddy/pkg/logger"
	"englishbuddy/router"
	"englishbuddy/socket"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 10 * time.Second

// newCLIApp creates the CLI application. serve runs when no command is given.
func newCLIApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "englishbuddy",
		Usage:   "AI English Buddy backend",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file (overrides CONFIG_PATH)"},
			&cli.StringFlag{Name: "env-file", Usage: "Extra .env file loaded before the environment is read"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			configCmd(),
		},
		Action: serve,
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP server",
		Action: serve,
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the effective configuration with secrets masked",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(c.App.Writer)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if envFile := c.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	return config.Load(c.String("config"))
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	return run(c.Context, cfg)
}

// run wires the services and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	repo, err := database.OpenStories(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open story store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			logger.Sugar.Errorf("Failed to close story store: %v", err)
		}
	}()

	var hub *socket.Hub
	var feed storyService.Publisher
	if cfg.Feed.Enabled {
		hub = socket.NewHub()
		go hub.Run()
		defer hub.Stop()
		feed = hub
	}

	if cfg.LLM.APIKey == "" {
		logger.Sugar.Warn("DEEPSEEK_API_KEY is not set; translate, generate and grammar requests will fail")
	}
	llmClient := llm.NewClient(llm.Config{
		URL:     cfg.LLM.URL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})

	topics := tutorService.DefaultTopics
	if cfg.Tutor.TopicsFile != "" {
		if topics, err = tutorService.LoadTopics(cfg.Tutor.TopicsFile); err != nil {
			return err
		}
	}

	var sender notebookService.Sender
	if cfg.Email.Complete() {
		sender = mailer.NewSMTPSender(mailer.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
		})
	} else {
		logger.Sugar.Warn("Mail settings are incomplete; notebook emails are disabled")
	}

	handler := router.Setup(router.Deps{
		Stories:        storyService.NewStoryService(repo, feed),
		Tutor:          tutorService.NewTutorService(llmClient, topics, cfg.Tutor.TranslationTarget),
		Notebook:       notebookService.NewNotebookService(sender, cfg.Email.Username, cfg.Email.Complete()),
		Hub:            hub,
		Ready:          router.StoreReady(repo),
		Logger:         logger.Log,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("englishbuddy listening on %s (store: %s)", srv.Addr, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
