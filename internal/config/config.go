package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Chat    ChatConfig
	AI      AIConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Backend: backend,
		Chat:    chat,
		AI:      ai,
		Log:     loadLogConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("CORS_ALLOWED_ORIGINS", []string{"*"})

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// BackendConfig 描述两个上游：对话引擎 (Rasa) 与餐厅 REST API。
type BackendConfig struct {
	DialogueURL    string
	RestAPIURL     string
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

func loadBackendConfig() (BackendConfig, error) {
	requestTimeout, err := parseSecondsEnv("CHAT_REQUEST_TIMEOUT", 15, 1, 60)
	if err != nil {
		return BackendConfig{}, err
	}

	probeTimeout, err := parseSecondsEnv("CHAT_PROBE_TIMEOUT", 5, 1, 30)
	if err != nil {
		return BackendConfig{}, err
	}

	return BackendConfig{
		DialogueURL:    strings.TrimRight(getEnvOrDefault("RASA_URL", "http://localhost:5005"), "/"),
		RestAPIURL:     strings.TrimRight(getEnvOrDefault("REST_API_URL", "http://localhost:8000"), "/"),
		RequestTimeout: requestTimeout,
		ProbeTimeout:   probeTimeout,
	}, nil
}

// FallbackMode 选择对话引擎失败后的备用通道。
type FallbackMode string

const (
	FallbackREST FallbackMode = "rest"
	FallbackArk  FallbackMode = "ark"
)

// ChatConfig 描述会话与轮询相关配置。
type ChatConfig struct {
	PollInterval    time.Duration
	SessionTTL      time.Duration
	SessionCapacity int
	Fallback        FallbackMode
}

func loadChatConfig() (ChatConfig, error) {
	poll, err := parseDurationEnv("CHAT_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}
	if poll < time.Second {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_POLL_INTERVAL value %s: must be at least 1s", poll)
	}

	ttl, err := parseDurationEnv("CHAT_SESSION_TTL", 2*time.Hour)
	if err != nil {
		return ChatConfig{}, err
	}

	capacity := 1024
	if override, err := parseOptionalIntEnv("CHAT_SESSION_CAPACITY"); err != nil {
		return ChatConfig{}, err
	} else if override != nil && *override > 0 {
		capacity = *override
	}

	mode := FallbackMode(strings.ToLower(getEnvOrDefault("CHAT_FALLBACK", string(FallbackREST))))
	switch mode {
	case FallbackREST, FallbackArk:
	default:
		return ChatConfig{}, fmt.Errorf("invalid CHAT_FALLBACK value %q: expected rest or ark", mode)
	}

	return ChatConfig{
		PollInterval:    poll,
		SessionTTL:      ttl,
		SessionCapacity: capacity,
		Fallback:        mode,
	}, nil
}

// AIConfig 描述大模型相关配置，仅在 CHAT_FALLBACK=ark 时使用。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// LogConfig 日志级别与可选的 JSON 日志文件。
type LogConfig struct {
	Level string
	File  string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "info"),
		File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
	}
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseSecondsEnv 读取以秒为单位的整数，并限制在 [min, max] 区间。
func parseSecondsEnv(key string, defaultSeconds, min, max int) (time.Duration, error) {
	value, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	seconds := defaultSeconds
	if value != nil {
		seconds = *value
	}
	if seconds < min {
		seconds = min
	}
	if seconds > max {
		seconds = max
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
