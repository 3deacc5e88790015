// cmd/lead-qualifier/setup.go
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lead-qualifier/internal/common/auth"
	"lead-qualifier/internal/common/aws"
	"lead-qualifier/internal/common/camunda"
	"lead-qualifier/internal/common/config"
	"lead-qualifier/internal/common/database"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/observability"
	"lead-qualifier/internal/common/ratelimit"
	"lead-qualifier/internal/common/zoho"
	"lead-qualifier/internal/httpapi"
	"lead-qualifier/internal/leads"
	"lead-qualifier/internal/qualification"
	"lead-qualifier/internal/qualification/llm"

	nhl "lead-qualifier/internal/workers/lead-qualification/notify-hot-lead"
	qm "lead-qualifier/internal/workers/lead-qualification/qualify-message"
	scl "lead-qualifier/internal/workers/lead-qualification/sync-crm-lead"
)

// app holds everything the HTTP server and the job workers share.
type app struct {
	service     *leads.Service
	notifier    *nhl.Handler
	crm         *scl.Handler
	chatLimiter *ratelimit.KeyLimiter
	adminAuth   httpapi.TokenValidator
	readyChecks map[string]func(context.Context) error
	closers     []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) (*app, error) {
	a := &app{readyChecks: map[string]func(context.Context) error{}}

	store, err := buildStore(ctx, cfg, zapLog)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	// --- Qualification policy and model ---
	policy, err := qualification.LoadPolicy(cfg.Qualification.PolicyPath)
	if err != nil {
		return nil, err
	}
	policy = policy.WithCalendlyLink(cfg.Qualification.CalendlyLink)

	model, err := llm.New(llm.LoadConfig(cfg), policy, log)
	if err != nil {
		return nil, fmt.Errorf("model qualifier: %w", err)
	}
	qualifier := qualification.NewFallback(model, qualification.NewEngine(policy), log)

	opts := []leads.Option{
		leads.WithLockTimeout(config.GetDuration(cfg.Qualification.LockTimeout)),
	}

	// --- Redis turn lock ---
	if cfg.Database.Redis.Enabled {
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		a.readyChecks["redis"] = rc.Ping
		opts = append(opts, leads.WithLocker(leads.NewRedisLocker(rc.Client, config.GetDuration(cfg.Qualification.LockTimeout))))
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch index ---
	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		a.readyChecks["elasticsearch"] = es.Ping
		opts = append(opts, leads.WithIndexer(leads.NewESIndexer(es.Client, cfg.Database.Elasticsearch.Index)))
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Hot-lead alerts and CRM sync ---
	notifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.notifier = notifier

	crmCfg := scl.LoadConfig()
	crmCfg.Enabled = cfg.Integrations.Zoho.Enabled
	crmCfg.Timeout = config.GetWorkerConfigTimeout(cfg, scl.TaskType, crmCfg.Timeout)
	var crm scl.CRM
	if cfg.Integrations.Zoho.Enabled {
		crm = zoho.NewCRMClient(cfg.Integrations.Zoho.BaseURL, cfg.Integrations.Zoho.APIKey, cfg.Integrations.Zoho.AuthToken)
	}
	a.crm = scl.NewHandler(crmCfg, crm, log)

	var hooks []leads.Hook
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		hooks = append(hooks, leads.HotLeadHook(a.notifier))
	}
	if cfg.Integrations.Zoho.Enabled {
		hooks = append(hooks, leads.CRMHook(a.crm))
	}
	opts = append(opts, leads.WithHooks(hooks...))

	a.service = leads.NewService(store, qualifier, log, opts...)

	// --- HTTP guards ---
	if cfg.Server.RateLimit.Enabled {
		a.chatLimiter = ratelimit.NewKeyLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}
	if cfg.Server.AdminAuth {
		a.adminAuth = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
	}

	return a, nil
}

// buildStore opens the configured lead store and applies the schema.
func buildStore(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (leads.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		store := leads.NewSQLStore(pg.GetDB(), leads.DialectPostgres)
		if err := store.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")
		return store, nil

	case config.DriverSQLite:
		lite, err := database.NewSQLite(cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}
		store := leads.NewSQLStore(lite.DB, leads.DialectSQLite)
		if err := store.Migrate(ctx); err != nil {
			lite.Close()
			return nil, err
		}
		zapLog.Info("SQLite store opened", zap.String("path", cfg.Database.SQLite.Path))
		return store, nil

	default:
		zapLog.Warn("Using in-memory lead store; leads are lost on restart")
		return leads.NewMemoryStore(), nil
	}
}

func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger) (*nhl.Handler, error) {
	awsCfg := cfg.Integrations.AWS

	notifyCfg := nhl.LoadConfig()
	notifyCfg.EmailEnabled = awsCfg.SES.Enabled
	notifyCfg.SNSEnabled = awsCfg.SNS.Enabled
	notifyCfg.Recipients = awsCfg.SES.Recipients
	notifyCfg.CalendlyLink = cfg.Qualification.CalendlyLink
	notifyCfg.Timeout = config.GetWorkerConfigTimeout(cfg, nhl.TaskType, notifyCfg.Timeout)

	var email nhl.EmailSender
	if awsCfg.SES.Enabled {
		ses, err := aws.NewSESClient(ctx, awsCfg.Region, awsCfg.SES.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		email = ses
	}

	var topic nhl.TopicPublisher
	if awsCfg.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, awsCfg.Region, awsCfg.SNS.TopicARN)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		topic = sns
	}

	return nhl.NewHandler(notifyCfg, email, topic, log), nil
}

// startWorkers opens a job worker for every enabled task type.
func startWorkers(zeebe *camunda.Client, cfg *config.Config, a *app, obs *observability.Observability, log logger.Logger) []*camunda.Worker {
	client := zeebe.GetClient()
	var workers []*camunda.Worker

	if config.IsWorkerEnabled(cfg, qm.TaskType) {
		qcfg := qm.LoadConfig()
		qcfg.Timeout = config.GetWorkerConfigTimeout(cfg, qm.TaskType, qcfg.Timeout)
		handler := qm.NewHandler(qcfg, a.service, log)
		workers = append(workers, camunda.StartWorker(client, qm.TaskType, config.GetWorkerConfig(cfg, qm.TaskType), handler.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, nhl.TaskType) {
		workers = append(workers, camunda.StartWorker(client, nhl.TaskType, config.GetWorkerConfig(cfg, nhl.TaskType), a.notifier.Handle, obs, log))
	}

	if config.IsWorkerEnabled(cfg, scl.TaskType) {
		workers = append(workers, camunda.StartWorker(client, scl.TaskType, config.GetWorkerConfig(cfg, scl.TaskType), a.crm.Handle, obs, log))
	}

	return workers
}
