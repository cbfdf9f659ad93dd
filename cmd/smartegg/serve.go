package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/smartegg/smartegg-core/internal/actuator"
	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/api"
	"github.com/smartegg/smartegg-core/internal/auth"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/config"
	"github.com/smartegg/smartegg-core/internal/infrastructure/database"
	"github.com/smartegg/smartegg-core/internal/infrastructure/influxdb"
	"github.com/smartegg/smartegg-core/internal/infrastructure/logging"
	"github.com/smartegg/smartegg-core/internal/infrastructure/mqtt"
	"github.com/smartegg/smartegg-core/internal/ingest"
	"github.com/smartegg/smartegg-core/internal/notify"
	"github.com/smartegg/smartegg-core/internal/realtime"
	"github.com/smartegg/smartegg-core/internal/stagewatch"
)

// healthCheckTimeout bounds the startup health check of each dependency.
const healthCheckTimeout = 5 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API, ingestion pipeline and stage watcher",
		Long: `serve migrates the database, connects MQTT and InfluxDB when enabled,
starts the notification channels and the stage watcher, and serves the
HTTP and WebSocket API until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), root.configPath)
		},
	}
}

// run is the serve lifecycle, separated from cobra for testability.
// It blocks until ctx is cancelled and returns nil on a clean shutdown.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting SmartEgg Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	users := auth.NewUserRepository(db.DB)
	incubations := incubation.NewSQLiteRepository(db.DB)
	readings := incubation.NewSQLiteReadingRepository(db.DB)
	alerts := alert.NewSQLiteRepository(db.DB)
	actuators := actuator.NewSQLiteRepository(db.DB)

	broker := realtime.NewBroker()
	broker.SetLogger(log.Component("realtime"))

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mirror := realtime.NewMQTTMirror(mqttClient)
		mirror.SetLogger(log.Component("realtime"))
		broker.AddMirror(mirror)
		go mirror.Run(ctx)
	} else {
		log.Info("MQTT disabled")
	}

	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	dispatcher := notify.NewDispatcher(cfg.GetDispatchTimeout(), notificationChannels(ctx, cfg, log, mqttClient, users, notify.BotStores{
		Users:       users,
		Incubations: incubations,
		Readings:    readings,
		Actuators:   actuators,
		Alerts:      alerts,
	})...)
	dispatcher.SetLogger(log.Component("notify"))
	defer dispatcher.Wait()

	actuatorSvc := actuator.NewService(actuators, broker)
	actuatorSvc.SetNotifier(dispatcher)
	actuatorSvc.SetLogger(log.Component("actuator"))

	deps := ingest.Deps{
		Incubations: incubations,
		Readings:    readings,
		Alerts:      alerts,
		Events:      broker,
		Notifier:    dispatcher,
	}
	if influxClient != nil {
		deps.Telemetry = influxClient
		actuatorSvc.SetTelemetry(influxClient)
	}
	pipeline := ingest.NewPipeline(cfg.Security.Ingest.APIKey, deps)
	pipeline.SetLogger(log.Component("ingest"))

	if mqttClient != nil {
		if subErr := pipeline.SubscribeMQTT(mqttClient, byte(cfg.MQTT.QoS)); subErr != nil {
			return fmt.Errorf("subscribing to sensor readings: %w", subErr)
		}
		log.Info("listening for sensor readings on MQTT", "topic", mqtt.Topics{}.AllSensorReadings())
	}

	watcher := stagewatch.New(incubations, alerts, broker, cfg.Incubation.StageWatchInterval)
	watcher.SetNotifier(dispatcher)
	watcher.SetLogger(log.Component("stagewatch"))
	go watcher.Run(ctx)

	authSvc := auth.NewService(users, cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.AccessTokenTTL)*time.Minute)

	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		DB:          db,
		Auth:        authSvc,
		Users:       users,
		Incubations: incubations,
		Readings:    readings,
		Actuators:   actuatorSvc,
		Alerts:      alerts,
		Ingest:      pipeline,
		Broker:      broker,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		log.Warn("initial health check failed", "error", err)
	} else {
		log.Info("all health checks passed")
	}

	log.Info("SmartEgg Core started successfully")

	<-ctx.Done()

	log.Info("shutting down SmartEgg Core")
	return nil
}

// openDatabase opens the SQLite store described by cfg.
func openDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// connectInfluxDB returns nil when InfluxDB is disabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil //nolint:nilnil // disabled is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(writeErr error) {
		log.Error("InfluxDB write error", "error", writeErr)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// notificationChannels builds the enabled delivery channels. A Telegram
// bot that cannot be reached is logged and skipped so readings keep flowing.
func notificationChannels(ctx context.Context, cfg *config.Config, log *logging.Logger, mqttClient *mqtt.Client, recipients notify.RecipientStore, stores notify.BotStores) []notify.Channel {
	var channels []notify.Channel
	loc := cfg.GetLocation()

	if cfg.Notifications.Telegram.Enabled {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.Telegram.Token)
		if err != nil {
			log.Error("telegram unavailable, notifications disabled for this channel", "error", err)
		} else {
			channels = append(channels, notify.NewTelegramChannel(botAPI, recipients, loc))
			log.Info("telegram notifications enabled", "bot", botAPI.Self.UserName)

			if cfg.Notifications.Telegram.Commands {
				bot := notify.NewBot(botAPI, stores, notify.BotInfo{
					Version: version,
					WebURL:  cfg.Notifications.Telegram.WebURL,
				}, loc)
				bot.SetLogger(log.Component("telegram"))
				go bot.Run(ctx)
			}
		}
	}

	if cfg.Notifications.MQTT {
		if mqttClient == nil {
			log.Warn("MQTT notifications requested but MQTT is disabled")
		} else {
			channels = append(channels, notify.NewMQTTChannel(mqttClient))
			log.Info("MQTT notifications enabled")
		}
	}

	if len(channels) == 0 {
		log.Info("no notification channels enabled")
	}
	return channels
}

// healthChecker is satisfied by every dependency checked at startup.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck pings the database and whichever optional services are connected.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	checks := map[string]healthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	for name, c := range checks {
		if err := c.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
