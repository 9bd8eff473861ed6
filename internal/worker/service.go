package worker

import (
	"context"
	"errors"

	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步任务消费服务，实现 app.Service
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建任务消费服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue is not enabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is required")
	}

	redisOpt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(redisOpt, serverCfg)

	mux := asynq.NewServeMux()
	consumer.Register(mux)

	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 返回服务名
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费，阻塞直至 Stop 被调用
func (s *Service) Start(_ context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker server not initialized")
	}
	return s.server.Run(s.mux)
}

// Stop 停止消费
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}
