package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PubSub Redis 发布/订阅与结果缓存客户端
type PubSub struct {
	client *redis.Client
}

// NewPubSub 创建 PubSub 实例
func NewPubSub(addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PubSub{
		client: client,
	}, nil
}

// RunNotification 分析完成通知消息
type RunNotification struct {
	FileID     string `json:"file_id"`
	ActionType string `json:"action_type"`
	RunID      int64  `json:"run_id"`
	Status     string `json:"status"` // COMPLETED/FAILED
	Timestamp  int64  `json:"timestamp"`
}

// PublishRunComplete 发布分析完成通知
// 参数：
//   - ctx: 上下文
//   - channel: Redis 频道名称（建议：analysis_run_complete）
//   - notification: 通知消息
func (p *PubSub) PublishRunComplete(
	ctx context.Context,
	channel string,
	notification *RunNotification,
) error {
	msgJSON, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.client.Publish(ctx, channel, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// resultKey 结果缓存键
func resultKey(actionType, fileID string) string {
	return fmt.Sprintf("flagsync:result:%s:%s", actionType, fileID)
}

// CacheResult 缓存最新结果 JSON（按 file_id 覆盖写）
func (p *PubSub) CacheResult(ctx context.Context, actionType, fileID string, result interface{}) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := p.client.Set(ctx, resultKey(actionType, fileID), resultJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}

// GetCachedResult 读取缓存结果 JSON（不存在时返回 nil）
func (p *PubSub) GetCachedResult(ctx context.Context, actionType, fileID string) ([]byte, error) {
	data, err := p.client.Get(ctx, resultKey(actionType, fileID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}
	return data, nil
}

// Subscribe 订阅 Redis 频道（用于测试）
func (p *PubSub) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return p.client.Subscribe(ctx, channel)
}

// Close 关闭 Redis 连接
func (p *PubSub) Close() error {
	return p.client.Close()
}
