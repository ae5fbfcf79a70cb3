package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PurchaseResult string `mapstructure:"purchase_result"`
	BonusResult    string `mapstructure:"bonus_result"`
	RankChanged    string `mapstructure:"rank_changed"`
}

// RankTierConfig 职级阈值配置项
// 按 pairs 升序排列，Reward 为晋升奖励金额（LEADERSHIP_BONUS）
type RankTierConfig struct {
	Name   string `mapstructure:"name"`
	Pairs  int    `mapstructure:"pairs"`
	Reward int64  `mapstructure:"reward"`
}

// BusinessConfig 业务参数
// 【重要】奖金规则的所有常量都必须来自配置，代码中不允许写死
type BusinessConfig struct {
	ProductBV          int64            `mapstructure:"product_bv"`           // 每次合格消费产生的 BV
	PairUnitBV         int64            `mapstructure:"pair_unit_bv"`         // 报表换算：每个成员折算的 BV
	PairBonus          int64            `mapstructure:"pair_bonus"`           // 每对碰对奖金额
	DirectBonus        int64            `mapstructure:"direct_bonus"`         // 直推奖金额
	DailyPairCap       int              `mapstructure:"daily_pair_cap"`       // 每人每日最多结算对数
	DailyLeadershipCap int              `mapstructure:"daily_leadership_cap"` // 每人每日最多领导奖次数
	MaxTreeDepth       int              `mapstructure:"max_tree_depth"`       // 安置树向上回溯的深度上限（环检测兜底）
	MaxRetryCount      int              `mapstructure:"max_retry_count"`
	SettleRetryCount   int              `mapstructure:"settle_retry_count"` // 计数器冲突时结算重试次数
	Ranks              []RankTierConfig `mapstructure:"ranks"`              // 为空时使用内置职级表
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	applyDefaults(config)

	GlobalConfig = config
	return config
}

// applyDefaults 兜底默认值，防止漏配导致深度限制或重试失效
func applyDefaults(c *Config) {
	if c.Business.MaxTreeDepth <= 0 {
		c.Business.MaxTreeDepth = 64
	}
	if c.Business.SettleRetryCount <= 0 {
		c.Business.SettleRetryCount = 3
	}
	if c.Business.MaxRetryCount <= 0 {
		c.Business.MaxRetryCount = 5
	}
	if c.Business.PairUnitBV <= 0 {
		c.Business.PairUnitBV = c.Business.ProductBV
	}
}
