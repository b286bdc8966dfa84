package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"listgram/api"
	"listgram/bot"
	"listgram/digest"
	"listgram/mailer"
	"listgram/models"
	"listgram/utils"
)

const (
	appName    = "Listgram"
	appVersion = "1.0.0"
)

func main() {
	envPath := flag.String("env", ".env", "Path to .env file")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s\nVersion %s\n", appName, appVersion)
		os.Exit(0)
	}

	log := setupLogger(*logLevel)
	log.Info("Starting Listgram")

	config, err := utils.LoadConfig(*envPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"subreddit":   config.Reddit.Subreddit,
		"feed":        config.Feed.URL,
		"digest_time": config.Digest.Time,
		"timezone":    config.Digest.Timezone,
		"server_port": config.Server.Port,
		"email":       config.EmailEnabled(),
	}).Info("Configuration loaded")

	notifier, err := bot.NewNotifier(config.Telegram.Token, config.Telegram.ChatID, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Telegram bot")
	}

	if config.Telegram.WebhookURL != "" {
		if err := notifier.RegisterWebhook(config.Telegram.WebhookURL); err != nil {
			log.WithError(err).Fatal("Failed to register webhook")
		}
	}

	app := &app{
		config:   config,
		reddit:   api.NewRedditAPI(config.Reddit.ClientID, config.Reddit.ClientSecret, config.Reddit.UserAgent, config.Reddit.MaxRequestsPerMinute, log),
		mailman:  api.NewMailmanScraper(log),
		feeds:    api.NewFeedClient(appName+"/"+appVersion, log),
		notifier: notifier,
		log:      log,
	}

	if config.EmailEnabled() {
		app.mailer = mailer.NewMailer(
			config.SMTP.Host,
			config.SMTP.Port,
			config.SMTP.From,
			config.SMTP.To,
			config.SMTP.Password,
			log,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := bot.NewHandler(notifier, func() {
		app.runDigest(context.Background())
	}, config.App.Name, config.App.Version, log)

	scheduler, err := scheduleDigest(app, config, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule digest")
	}
	scheduler.Start()
	defer scheduler.Stop()

	go startEchoServer(ctx, config.Server.Port, app, handler, log, config.Server.MaxRequestsPerMinute)

	waitForShutdown(cancel, log)
}

// app holds the wired components and the summary of the last digest run.
type app struct {
	config   *utils.Config
	reddit   *api.RedditAPI
	mailman  *api.MailmanScraper
	feeds    *api.FeedClient
	notifier *bot.Notifier
	mailer   *mailer.Mailer
	log      *logrus.Logger

	mutex       sync.RWMutex
	lastSummary digest.Summary
}

// runDigest builds a fresh digest and delivers it. Collections live for this
// one cycle only; the archive url is re-expanded so month rollovers pick up
// the new Pipermail page.
func (a *app) runDigest(ctx context.Context) {
	archiveURL := utils.ExpandArchiveURL(a.config.Mailman.ArchiveURL, time.Now())

	builder := digest.NewBuilder(
		a.mailman,
		a.reddit,
		a.feeds,
		models.EmojiResolver,
		digest.Config{
			ArchiveURL: archiveURL,
			Subreddit:  a.config.Reddit.Subreddit,
			PostLimit:  a.config.Reddit.PostLimit,
			FeedURL:    a.config.Feed.URL,
		},
		a.log,
	)

	d := builder.Build(ctx)

	a.mutex.Lock()
	a.lastSummary = d.Summary()
	a.mutex.Unlock()

	if d.Empty() {
		a.log.Info("Digest is empty, skipping delivery")
		return
	}

	if err := a.notifier.SendDigest(d); err != nil {
		a.log.WithError(err).Error("Failed to deliver digest to Telegram")
	}

	if a.mailer != nil && d.Threads.CountMails() > 0 {
		subject := fmt.Sprintf("%s digest %s", a.config.App.Name, d.BuiltAt.Format("02/01/06"))
		if err := a.mailer.SendDigest(subject, d.Threads.String()); err != nil {
			a.log.WithError(err).Error("Failed to deliver digest mail")
		}
	}
}

// getLastSummary returns a copy of the most recent digest counts
func (a *app) getLastSummary() digest.Summary {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.lastSummary
}

// scheduleDigest wires the daily digest into a timezone-aware cron
func scheduleDigest(app *app, config *utils.Config, log *logrus.Logger) (*cron.Cron, error) {
	location, err := time.LoadLocation(config.Digest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", config.Digest.Timezone, err)
	}

	var hour, minute int
	if _, err := fmt.Sscanf(config.Digest.Time, "%d:%d", &hour, &minute); err != nil {
		return nil, fmt.Errorf("failed to parse digest time %q: %w", config.Digest.Time, err)
	}

	scheduler := cron.New(cron.WithLocation(location))
	spec := fmt.Sprintf("%d %d * * *", minute, hour)

	if _, err := scheduler.AddFunc(spec, func() {
		app.runDigest(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("failed to add digest job: %w", err)
	}

	log.WithFields(logrus.Fields{
		"time":     config.Digest.Time,
		"timezone": config.Digest.Timezone,
	}).Info("Digest scheduled")

	return scheduler, nil
}

// setupLogger sets up the logger with the specified log level
func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// startEchoServer starts the Echo HTTP server for the webhook and the
// digest preview endpoint
func startEchoServer(ctx context.Context, port int, app *app, handler *bot.Handler, log *logrus.Logger, maxRequestsPerMinute int) {
	e := echo.New()

	// middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	requestsPerSecond := float64(maxRequestsPerMinute) / 60.0

	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(requestsPerSecond),
				Burst:     5,
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded, please try again later",
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded, please try again later",
			})
		},
	}
	e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig))

	// Telegram update ingestion
	e.POST("/webhook", func(c echo.Context) error {
		var update tgbotapi.Update
		if err := c.Bind(&update); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "malformed update",
			})
		}
		handler.HandleUpdate(update)
		return c.NoContent(http.StatusOK)
	})

	// counts of the most recent digest run
	e.GET("/api/digest", func(c echo.Context) error {
		return c.JSON(http.StatusOK, app.getLastSummary())
	})

	// health check endpoint; useful for k8s liveliness probes
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// start the server!
	go func() {
		serverAddr := fmt.Sprintf(":%d", port)
		log.WithField("port", port).Info("Starting HTTP server")
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// wait for context cancellation to shut down server
	<-ctx.Done()
	log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
}

// waitForShutdown waits for a shutdown signal
func waitForShutdown(cancel context.CancelFunc, log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("Shutdown signal received")

	cancel()

	time.Sleep(1 * time.Second)
	log.Info("Listgram stopped")
}
