// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是整个中间件的配置树，来源为 yaml 文件 + 环境变量覆盖。
type Config struct {
	App struct {
		// CMS 客户管理系统（SOAP/XML 文档协议）
		CMS struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"cms"`
		// ROS 路径优化系统（REST/JSON）
		ROS struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"ros"`
		// WMS 仓库管理系统（原生 TCP）
		WMS struct {
			Addr string `yaml:"addr"`
		} `yaml:"wms"`
		// AdapterTimeoutSeconds 是每一条腿的出站调用超时（参考策略为 30 秒）
		AdapterTimeoutSeconds int `yaml:"adapter_timeout_seconds"`
		// DispatchRules 是 CEL 表达式描述的派单策略，按顺序求值，第一条命中生效
		DispatchRules []DispatchRule `yaml:"dispatch_rules"`
	} `yaml:"app"`

	Infra struct {
		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

// DispatchRule 是一条派单策略：When 为 CEL 表达式，输入变量为 priority。
type DispatchRule struct {
	When        string `yaml:"when"`
	ServiceTime int    `yaml:"service_time"`
	TimeWindow  string `yaml:"time_window"`
}

// AdapterTimeout 返回出站调用超时时间。
func (c *Config) AdapterTimeout() time.Duration {
	if c.App.AdapterTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.App.AdapterTimeoutSeconds) * time.Second
}

var currentConfig atomic.Value // *Config

// Init 加载配置。路径来自 CONFIG_PATH，找不到文件时使用内置默认值，
// 保证本地开发可以零配置启动。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
		log.Printf("✅ Config loaded from %s", path)
	} else {
		log.Printf("⚠️ WARNING: config file %s not found, using defaults", path)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前配置快照。必须先调用 Init。
func GetCurrentConfig() *Config {
	cfg, ok := currentConfig.Load().(*Config)
	if !ok {
		log.Fatal("FATAL: bootstrap.Init must be called before GetCurrentConfig")
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.CMS.BaseURL = "http://localhost:8001"
	cfg.App.ROS.BaseURL = "http://localhost:8002"
	cfg.App.ROS.APIKey = "demo_api_key"
	cfg.App.WMS.Addr = "localhost:8003"
	cfg.App.AdapterTimeoutSeconds = 30
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/swiftlogistics?parseTime=true"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	cfg.App.CMS.BaseURL = getEnv("CMS_BASE_URL", cfg.App.CMS.BaseURL)
	cfg.App.ROS.BaseURL = getEnv("ROS_BASE_URL", cfg.App.ROS.BaseURL)
	cfg.App.ROS.APIKey = getEnv("ROS_API_KEY", cfg.App.ROS.APIKey)
	cfg.App.WMS.Addr = getEnv("WMS_ADDR", cfg.App.WMS.Addr)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(brokers, ",")
	}
	cfg.Infra.Mysql.DSN = getEnv("MYSQL_DSN", cfg.Infra.Mysql.DSN)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	if servers := os.Getenv("ZK_SERVERS"); servers != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(servers, ",")
	}
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
}

// getEnv 从环境变量中读取配置，缺省时使用 fallback。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
