package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	anomalybiz "mmp/flagsync/internal/business/anomaly"
	exclusionbiz "mmp/flagsync/internal/business/exclusion"
	"mmp/flagsync/internal/domains"
	"mmp/flagsync/internal/framework"
	"mmp/flagsync/pkg/config"
	"mmp/flagsync/pkg/embed"
	"mmp/flagsync/pkg/infra/mysql"
	"mmp/flagsync/pkg/infra/redis"
	"mmp/flagsync/pkg/lmstfy"
	"mmp/flagsync/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx           context.Context
	cfg           *config.Config
	lmstfyClient  *lmstfy.Client
	runDAO        *mysql.RunDAO
	pubsub        *redis.PubSub
	embedder      embed.Embedder
	summarizer    *anomalybiz.GenAISummarizer
	services      *domains.Services
	callbackQueue string
	workers       []Worker
	closing       *atomic.Bool
	shutdownCh    chan struct{}
	wg            sync.WaitGroup
	logger        logger.Logger
}

// NewManagerInstance 创建 Manager
// 初始化全部基础设施：lmstfy、MySQL、Redis、GenAI，并装配业务服务
func NewManagerInstance(cfg *config.Config, log logger.Logger) (Manager, error) {
	ctx := context.Background()

	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
	}

	runDAO, err := mysql.NewRunDAO(cfg.MySQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create run dao: %w", err)
	}

	pubsub, err := redis.NewPubSub(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis pubsub: %w", err)
	}

	var callbackQueue string
	if len(cfg.Workers) > 0 {
		callbackQueue = cfg.Workers[0].CallbackQueue
	}
	if callbackQueue == "" {
		return nil, fmt.Errorf("callback_queue is required in worker config")
	}

	// GenAI 可选：没有 API Key 时向量匹配与洞察生成降级
	var embedder embed.Embedder
	var summarizer *anomalybiz.GenAISummarizer
	if cfg.GenAI.APIKey != "" {
		engine, err := embed.NewGenAIEngine(ctx, cfg.GenAI.APIKey, cfg.GenAI.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai embedder: %w", err)
		}
		embedder = engine

		summarizer, err = anomalybiz.NewGenAISummarizer(ctx, cfg.GenAI.APIKey, cfg.GenAI.InsightModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai summarizer: %w", err)
		}
	} else {
		log.Warnf(ctx, "[Manager] genai api key not configured, vector matching and insight generation disabled")
	}

	exclusionService := exclusionbiz.NewService(cfg.Exclusion, runDAO, pubsub, lmstfyClient, callbackQueue, embedder, log)

	var anomalySummarizer anomalybiz.Summarizer
	if summarizer != nil {
		anomalySummarizer = summarizer
	}
	anomalyService := anomalybiz.NewService(cfg.Anomaly, runDAO, pubsub, lmstfyClient, callbackQueue, anomalySummarizer, log)

	log.Infof(ctx, "[Manager] Initialized with callback_queue: %s", callbackQueue)

	return &ManagerInstance{
		ctx:          ctx,
		cfg:          cfg,
		lmstfyClient: lmstfyClient,
		runDAO:       runDAO,
		pubsub:       pubsub,
		embedder:     embedder,
		summarizer:   summarizer,
		services: &domains.Services{
			Exclusion: exclusionService,
			Anomaly:   anomalyService,
		},
		callbackQueue: callbackQueue,
		closing:       atomic.NewBool(false),
		shutdownCh:    make(chan struct{}),
		workers:       make([]Worker, 0),
		logger:        log,
	}, nil
}

// Start 启动 Manager
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	// 1. 加载所有 Worker
	if err := m.loadWorkers(); err != nil {
		return fmt.Errorf("failed to load workers: %w", err)
	}

	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	m.logger.Infof(m.ctx, "[Manager] Start success")

	// 3. 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	// 原子操作，保证并发安全
	if m.closing.CAS(false, true) {
		// 1. 所有 Worker 安全退出
		for _, worker := range m.workers {
			m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
			worker.Shutdown()
		}

		// 2. 等待所有 Worker 退出
		m.wg.Wait()

		// 3. 释放基础设施连接
		m.closeInfra()

		// 4. 关闭信号通道
		close(m.shutdownCh)

		m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
	}
}

// closeInfra 关闭基础设施连接
func (m *ManagerInstance) closeInfra() {
	if m.runDAO != nil {
		if err := m.runDAO.Close(); err != nil {
			m.logger.Warnf(m.ctx, "[Manager] close mysql failed: %v", err)
		}
	}
	if m.pubsub != nil {
		if err := m.pubsub.Close(); err != nil {
			m.logger.Warnf(m.ctx, "[Manager] close redis failed: %v", err)
		}
	}
	if m.embedder != nil {
		if err := m.embedder.Close(); err != nil {
			m.logger.Warnf(m.ctx, "[Manager] close embedder failed: %v", err)
		}
	}
	if m.summarizer != nil {
		if err := m.summarizer.Close(); err != nil {
			m.logger.Warnf(m.ctx, "[Manager] close summarizer failed: %v", err)
		}
	}
}

// loadWorkers 加载所有 Worker
func (m *ManagerInstance) loadWorkers() error {
	for _, workerCfg := range m.cfg.Workers {
		subCfg := &framework.SubscriberConfig{
			QueueName:    workerCfg.QueueName,
			Concurrency:  workerCfg.Subscriber.Threads,
			Rate:         workerCfg.Subscriber.Rate,
			Timeout:      workerCfg.Subscriber.Timeout,
			TTR:          workerCfg.Subscriber.TTR,
			ErrorBackoff: workerCfg.Subscriber.ErrorBackoff,
		}

		procCfg := &framework.ProcessorConfig{
			Concurrency: workerCfg.Processor.Threads,
			BufferSize:  workerCfg.Processor.BufferSize,
			Timeout:     workerCfg.Processor.Timeout,
		}

		getProcess := domains.GetProcess(m.logger, m.services)

		worker, err := NewWorkerInstance(
			m.ctx,
			workerCfg.Name,
			subCfg,
			procCfg,
			m.lmstfyClient, // MessageSource
			getProcess,     // lmstfyx.Proc
			m.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", workerCfg.Name, err)
		}

		m.workers = append(m.workers, worker)
	}

	return nil
}
