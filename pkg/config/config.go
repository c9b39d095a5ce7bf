package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lmstfy    LmstfyConfig    `mapstructure:"lmstfy"`
	GenAI     GenAIConfig     `mapstructure:"genai"`
	Exclusion ExclusionConfig `mapstructure:"exclusion"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// GenAIConfig GenAI 配置（向量化 + 洞察生成）
type GenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	EmbedModel   string `mapstructure:"embed_model"`
	InsightModel string `mapstructure:"insight_model"`
}

// ExclusionConfig 品牌排除分析配置
type ExclusionConfig struct {
	PrivateBrandPath  string   `mapstructure:"private_brand_path"`  // 自有品牌参考文件
	MappingIssuePath  string   `mapstructure:"mapping_issue_path"`  // 映射问题参考文件
	GroupRegistryPath string   `mapstructure:"group_registry_path"` // 历史合并组快照（JSON）
	GroupSource       string   `mapstructure:"group_source"`        // matcher / static
	EmbedThreshold    float64  `mapstructure:"embed_threshold"`     // 向量匹配阈值（默认 0.9）
	FuzzyThreshold    int      `mapstructure:"fuzzy_threshold"`     // 模糊匹配阈值（默认 90）
	AdvExclusions     []string `mapstructure:"adv_exclusions"`      // 广告主排除名单覆盖（为空用内置）
	OutputDir         string   `mapstructure:"output_dir"`          // 导出产物目录
}

// AnomalyConfig 媒体异常检测配置
type AnomalyConfig struct {
	InsightEnabled bool `mapstructure:"insight_enabled"` // 是否调用洞察生成
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 填充默认阈值
func (c *Config) applyDefaults() {
	if c.Exclusion.EmbedThreshold == 0 {
		c.Exclusion.EmbedThreshold = 0.9
	}
	if c.Exclusion.FuzzyThreshold == 0 {
		c.Exclusion.FuzzyThreshold = 90
	}
	if c.Exclusion.GroupSource == "" {
		c.Exclusion.GroupSource = "matcher"
	}
	if c.GenAI.EmbedModel == "" {
		c.GenAI.EmbedModel = "gemini-embedding-001"
	}
	if c.GenAI.InsightModel == "" {
		c.GenAI.InsightModel = "gemini-2.0-flash"
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	if c.Exclusion.GroupSource != "matcher" && c.Exclusion.GroupSource != "static" {
		return fmt.Errorf("exclusion.group_source must be matcher or static")
	}
	return nil
}
