package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	config "taskpilot/app/configs"
	"taskpilot/app/core/audit"
	"taskpilot/app/core/bot"
	"taskpilot/app/core/clickup"
	"taskpilot/app/core/dispatch"
	"taskpilot/app/core/flow"
	"taskpilot/app/core/health"
	"taskpilot/app/core/interaction/cli"
	"taskpilot/app/core/interaction/gateway"
	"taskpilot/app/core/interaction/mattermost"
	"taskpilot/app/core/report"
	"taskpilot/app/core/scheduler"
	"taskpilot/app/core/session"
	"taskpilot/app/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := logger.Init("output/logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("TaskPilot starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	if cfg.ClickUp.APIToken == "" {
		logger.Error("CLICKUP_API_TOKEN is required")
		os.Exit(1)
	}

	auditStore, err := audit.NewStore("output/db/taskpilot.db")
	if err != nil {
		logger.Error("Failed to open audit store: %v", err)
		os.Exit(1)
	}
	defer auditStore.Close()
	logger.Info("Audit store ready")

	clickupClient := clickup.NewClient(cfg.ClickUp.BaseURL, cfg.ClickUp.APIToken)
	sessions := session.NewStore(time.Duration(cfg.Session.IdleTimeoutSec) * time.Second)
	reports := report.NewGenerator(clickupClient)
	engine := flow.New(sessions, clickupClient, clickupClient, reports)
	taskBot := bot.New(cfg.Bot.Name, engine, auditStore)

	dispatcher := dispatch.New(0)
	defer dispatcher.Stop(5 * time.Second)

	gw := gateway.NewGateway(taskBot, dispatcher)
	if tracer, err := gateway.NewTraceRecorder("output/traces"); err != nil {
		logger.Error("Trace recorder disabled: %v", err)
	} else {
		gw.SetTraceRecorder(tracer)
	}

	if cfg.Mattermost.BotToken != "" {
		gw.RegisterChannel(mattermost.NewChannel(mattermost.Config{
			ServerURL:      fmt.Sprintf("%s:%d", cfg.Mattermost.ServerURL, cfg.Mattermost.Port),
			BotToken:       cfg.Mattermost.BotToken,
			PollInterval:   time.Duration(cfg.Mattermost.PollIntervalSec) * time.Second,
			ChatIDs:        cfg.Mattermost.PollChatIDs,
			DefaultChatID:  cfg.Mattermost.DefaultChatID,
			WebhookEnabled: cfg.Mattermost.WebhookEnabled,
			WebhookPort:    cfg.Mattermost.WebhookPort,
		}))
	} else {
		logger.Info("BOT_TOKEN not set; Mattermost channel disabled")
	}
	gw.RegisterChannel(cli.NewCLIChannel(""))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobScheduler := scheduler.New()
	registerReportJobs(jobScheduler, gw, reports, cfg.Reports)
	if err := jobScheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := jobScheduler.Stop(3 * time.Second); err != nil {
			logger.Error("Scheduler shutdown timeout: %v", err)
		}
	}()

	healthServer := health.NewServer(cfg.Health.Port, gw, sessions, auditStore, jobScheduler)
	go func() {
		if err := healthServer.Start(ctx); err != nil {
			logger.Error("Health server crashed: %v", err)
		}
	}()

	go func() {
		if err := gw.Start(ctx); err != nil {
			logger.Error("Gateway crashed: %v", err)
			os.Exit(1)
		}
	}()

	logger.Info("TaskPilot is ready to serve.")
	fmt.Println("- CLI Interface:  Interactive")
	fmt.Printf("- Health:         http://localhost:%d/health\n", cfg.Health.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal: %v. TaskPilot shutting down...", sig)
	cancel()
}

// registerReportJobs wires the configured periodic reports. A report
// needs a target team and chat; without them the job stays off.
func registerReportJobs(s *scheduler.Scheduler, gw *gateway.DefaultGateway, reports *report.Generator, cfg config.ReportsConfig) {
	if cfg.TeamID == "" || cfg.ChatID == "" {
		return
	}
	channelID := cfg.ChannelID
	if channelID == "" {
		channelID = "mattermost"
	}

	deliver := func(kind report.Kind) func(context.Context) error {
		return func(ctx context.Context) error {
			text, err := reports.Build(ctx, kind, cfg.TeamID)
			if err != nil {
				return err
			}
			return gw.DeliverDirect(ctx, channelID, cfg.ChatID, text)
		}
	}

	if cfg.DailyEnabled {
		if err := s.Register(scheduler.JobSpec{
			Name:     "daily-report",
			Interval: time.Duration(cfg.DailyIntervalHours) * time.Hour,
			Timeout:  2 * time.Minute,
			Run:      deliver(report.KindDaily),
		}); err != nil {
			logger.Error("Failed to register daily report job: %v", err)
		}
	}
	if cfg.WeeklyEnabled {
		if err := s.Register(scheduler.JobSpec{
			Name:     "weekly-report",
			Interval: time.Duration(cfg.WeeklyIntervalHours) * time.Hour,
			Timeout:  2 * time.Minute,
			Run:      deliver(report.KindWeekly),
		}); err != nil {
			logger.Error("Failed to register weekly report job: %v", err)
		}
	}
}
