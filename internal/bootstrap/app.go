package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paperqa/internal/ai"
	appsvc "paperqa/internal/app"
	"paperqa/internal/cache"
	"paperqa/internal/chunkstore"
	"paperqa/internal/config"
	"paperqa/internal/logger"
	"paperqa/internal/model"
	"paperqa/internal/pkg/pdfextract"
	mysqlClient "paperqa/internal/platform/mysql"
	rabbitmqClient "paperqa/internal/platform/rabbitmq"
	redisClient "paperqa/internal/platform/redis"
	"paperqa/internal/repository"
	"paperqa/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Sessions     *appsvc.SessionService
	Queries      *appsvc.QueryService
	Ingest       *appsvc.IngestService
	RunLogs      *repository.RunLogRepository
	AnswerWorker *worker.AnswerPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.New(cfg.App.LogFile, cfg.App.Env == "prod")

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.Session{},
		&model.Document{},
		&model.Question{},
		&model.Answer{},
		&model.RunLog{},
		&chunkstore.Collection{},
		&chunkstore.Record{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	sessionRepo := repository.NewSessionRepository(mysqlDB)
	documentRepo := repository.NewDocumentRepository(mysqlDB)
	questionRepo := repository.NewQuestionRepository(mysqlDB)
	answerRepo := repository.NewAnswerRepository(mysqlDB)
	runLogRepo := repository.NewRunLogRepository(mysqlDB)

	store := chunkstore.NewGormStore(mysqlDB)
	historyCache := cache.NewHistoryCache(redisCli, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	aiClient := ai.NewOpenAICompatibleClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})

	ingest := appsvc.NewIngestService(documentRepo, store, aiClient, pdfextract.ExtractPages, log,
		appsvc.IngestOptions{
			Workers:        cfg.Ingest.Workers,
			QueueSize:      cfg.Ingest.QueueSize,
			Timeout:        time.Duration(cfg.Ingest.TimeoutSeconds) * time.Second,
			ChunkSize:      cfg.Ingest.ChunkSize,
			ChunkOverlap:   cfg.Ingest.ChunkOverlap,
			EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
		})
	ingest.Start(ctx)

	answerPublisher := rabbitmqClient.NewAnswerPublisher(mqConn, cfg.RabbitMQ.AnswerPersistQueue)
	queries := appsvc.NewQueryService(documentRepo, store, aiClient, aiClient,
		answerPublisher, runLogRepo, log, cfg.Query.TopK)
	sessions := appsvc.NewSessionService(sessionRepo, documentRepo, questionRepo, answerRepo,
		store, historyCache, log)

	answerWorker := worker.NewAnswerPersistWorker(mqConn, questionRepo, answerRepo, historyCache,
		cfg.RabbitMQ.AnswerPersistQueue, log)
	if err := answerWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start answer worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       log,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		Sessions:     sessions,
		Queries:      queries,
		Ingest:       ingest,
		RunLogs:      runLogRepo,
		AnswerWorker: answerWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Ingest != nil {
		a.Ingest.Close()
	}
	if a.AnswerWorker != nil {
		a.AnswerWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
