package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"joe-analytics/pkg/utils"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// 数据源名称
const (
	SourceVeJoe        = "vejoe"
	SourceSJoe         = "sjoe"
	SourceRJoe         = "rjoe"
	SourceBoostedPools = "boosted_pools"
)

// Config 定义整个配置的结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	API      APIConfig      `mapstructure:"api"`
	Store    StoreConfig    `mapstructure:"store"`
	Poll     PollConfig     `mapstructure:"poll"`
	Subgraph SubgraphConfig `mapstructure:"subgraph"`
	Wars     WarsConfig     `mapstructure:"wars"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Service string `mapstructure:"service"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

// APIConfig 看板查询接口
type APIConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Addr     string `mapstructure:"addr"`
	CacheTTL int    `mapstructure:"cache_ttl"` // 秒
}

// StoreConfig 快照文件目录
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

type PollConfig struct {
	Interval int `mapstructure:"interval"` // 秒
	Timeout  int `mapstructure:"timeout"`  // 单次刷新超时，秒
}

// SubgraphConfig subgraph 连接参数，sources 为 数据源名称 -> URL
type SubgraphConfig struct {
	PageSize   int               `mapstructure:"page_size"`
	Timeout    int               `mapstructure:"timeout"`    // 秒
	RateLimit  int               `mapstructure:"rate_limit"` // 每分钟请求数
	MaxRetries int               `mapstructure:"max_retries"`
	Sources    map[string]string `mapstructure:"sources"`
}

// SourceConfig 单个 subgraph 数据源
type SourceConfig struct {
	Name       string
	URL        string
	PageSize   int
	Timeout    int
	RateLimit  int
	MaxRetries int
}

// Source 返回某个数据源的完整配置
func (c SubgraphConfig) Source(name string) SourceConfig {
	return SourceConfig{
		Name:       name,
		URL:        c.Sources[name],
		PageSize:   c.PageSize,
		Timeout:    c.Timeout,
		RateLimit:  c.RateLimit,
		MaxRetries: c.MaxRetries,
	}
}

// PlatformConfig 参与 wars 的平台钱包
type PlatformConfig struct {
	Label   string `mapstructure:"label"`
	Address string `mapstructure:"address"`
}

// WarsConfig wars 计算与区块序列参数
type WarsConfig struct {
	EmissionPerSec string           `mapstructure:"emission_per_sec"` // 原始整数，18 位精度
	TokenDecimals  int32            `mapstructure:"token_decimals"`
	PoolAddress    string           `mapstructure:"pool_address"`
	Platforms      []PlatformConfig `mapstructure:"platforms"`
	BackfillFrom   uint64           `mapstructure:"backfill_from"`
	BackfillTo     uint64           `mapstructure:"backfill_to"`
	BackfillStep   uint64           `mapstructure:"backfill_step"`
	AppendStep     uint64           `mapstructure:"append_step"`
}

// EmissionRate 每秒 JOE 排放量
func (c WarsConfig) EmissionRate() (decimal.Decimal, error) {
	raw, err := decimal.NewFromString(c.EmissionPerSec)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid wars.emission_per_sec %q: %w", c.EmissionPerSec, err)
	}
	return utils.AdjustDecimals(raw, c.TokenDecimals), nil
}

// PlatformLabels 小写地址 -> 平台名称
func (c WarsConfig) PlatformLabels() map[string]string {
	labels := make(map[string]string, len(c.Platforms))
	for _, p := range c.Platforms {
		labels[utils.NormalizeAddress(p.Address)] = p.Label
	}
	return labels
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.service", "joe-worker")

	v.SetDefault("monitor.enable", false)
	v.SetDefault("monitor.prometheus_addr", ":9090")

	v.SetDefault("api.enable", true)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.cache_ttl", 180)

	v.SetDefault("store.dir", "./jsons")

	v.SetDefault("poll.interval", 60)
	v.SetDefault("poll.timeout", 1800)

	v.SetDefault("subgraph.page_size", 1000)
	v.SetDefault("subgraph.timeout", 30)
	v.SetDefault("subgraph.rate_limit", 0)
	v.SetDefault("subgraph.max_retries", 2)
	v.SetDefault("subgraph.sources", map[string]string{
		SourceVeJoe:        "https://api.thegraph.com/subgraphs/name/0xsloth/vejoe-stake",
		SourceSJoe:         "https://api.thegraph.com/subgraphs/name/0xsloth/sjoe-stake",
		SourceRJoe:         "https://api.thegraph.com/subgraphs/name/0xsloth/rjoe-stake",
		SourceBoostedPools: "https://api.thegraph.com/subgraphs/id/QmSJLBynLd1kzC2cLSPvLg4G5NGFZ1UCHztuee6FqUFQay",
	})

	v.SetDefault("wars.emission_per_sec", "1833719582850521436")
	v.SetDefault("wars.token_decimals", 18)
	v.SetDefault("wars.pool_address", "0x25D85E17dD9e544F6E9F8D44F99602dbF5a97341")
	v.SetDefault("wars.platforms", []map[string]interface{}{
		{"label": "YieldYak", "address": "0xe7462905B79370389e8180E300F58f63D35B725F"},
		{"label": "Beefy", "address": "0x1F2A8034f444dc55F963fb5925A9b6eb744EeE2c"},
		{"label": "NorthPole", "address": "0xF30E775240D4137daEa097109FEA882C406D61cc"},
		{"label": "Vector", "address": "0x0E25c07748f727D6CCcD7D2711fD7bD13d13422d"},
	})
	v.SetDefault("wars.backfill_from", 12200000)
	v.SetDefault("wars.backfill_to", 13760000)
	v.SetDefault("wars.backfill_step", 10000)
	v.SetDefault("wars.append_step", 1000)
}

var (
	mu      sync.Mutex
	current *viper.Viper
)

// LoadConfig 读取配置文件，path 为空时使用 ./config/config.worker.yaml，文件不存在时只用默认值
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JOE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config.worker")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return Config{}, err
	}

	mu.Lock()
	current = v
	mu.Unlock()
	return config, nil
}

func decode(v *viper.Viper) (Config, error) {
	var config Config
	if err := mapstructure.WeakDecode(v.AllSettings(), &config); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate 检查启动所需的配置项
func (c Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %d", c.Poll.Interval)
	}
	if c.Subgraph.PageSize <= 0 || c.Subgraph.PageSize > 1000 {
		return fmt.Errorf("subgraph.page_size must be in (0, 1000], got %d", c.Subgraph.PageSize)
	}
	for _, name := range []string{SourceVeJoe, SourceSJoe, SourceRJoe, SourceBoostedPools} {
		if c.Subgraph.Sources[name] == "" {
			return fmt.Errorf("subgraph.sources.%s is required", name)
		}
	}
	if c.Store.Dir == "" {
		return errors.New("store.dir is required")
	}
	if _, err := c.Wars.EmissionRate(); err != nil {
		return err
	}
	if !utils.IsAddress(c.Wars.PoolAddress) {
		return fmt.Errorf("wars.pool_address %q is not an address", c.Wars.PoolAddress)
	}
	for _, p := range c.Wars.Platforms {
		if p.Label == "" || !utils.IsAddress(p.Address) {
			return fmt.Errorf("invalid wars platform %q (%s)", p.Label, p.Address)
		}
	}
	if c.Wars.BackfillStep == 0 || c.Wars.AppendStep == 0 {
		return errors.New("wars.backfill_step and wars.append_step must be positive")
	}
	return nil
}

// InitConfig 启动时加载配置，失败直接 panic
func InitConfig() Config {
	config, err := LoadConfig("")
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return config
}

// WatchConfig 配置文件变更时重新解析并回调
func WatchConfig(onChange func(Config)) {
	mu.Lock()
	v := current
	mu.Unlock()
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := decode(v)
		if err != nil {
			return
		}
		onChange(newConfig)
	})
	v.WatchConfig()
}
