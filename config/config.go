package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	HistoryProviderYahoo    = "yahoo"
	HistoryProviderLongport = "longport"

	EstimatorHistory = "history"
	EstimatorRandom  = "random"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DownloadDir  string `json:"download_dir"`
	DBPath       string `json:"db_path"`

	LLMProvider string  `json:"llm_provider" validate:"oneof=openai deepseek"`
	LLMModel    string  `json:"llm_model" validate:"required"`
	SummaryLLM  string  `json:"summary_llm" validate:"required"`
	BackendURL  string  `json:"backend_url"`
	Temperature float32 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens" validate:"gte=0"`

	// Pipeline
	Budget              float64 `json:"budget" validate:"gt=0"`
	ScanLimit           int     `json:"scan_limit" validate:"gte=0"`
	Workers             int     `json:"workers" validate:"gte=1,lte=32"`
	FetchPriceHistory   bool    `json:"fetch_price_history"`
	FetchFilings        bool    `json:"fetch_filings"`
	HistoryPeriod       string  `json:"history_period" validate:"oneof=5d 1mo 3mo 6mo 1y 2y 5y"`
	HistoryInterval     string  `json:"history_interval" validate:"oneof=1d 1wk 1mo"`
	RecommendationsTail int     `json:"recommendations_tail" validate:"gte=1"`
	NewsDays            int     `json:"news_days" validate:"gte=0"`
	ScannerEstimator    string  `json:"scanner_estimator" validate:"oneof=history random"`
	ScannerSeed         int64   `json:"scanner_seed"`
	ReconcileSectorCap  bool    `json:"reconcile_sector_cap"`

	// Upstream behaviour
	RetryAttempts int           `json:"retry_attempts" validate:"gte=0,lte=5"`
	HTTPTimeout   time.Duration `json:"http_timeout" validate:"gt=0"`
	RunTimeout    time.Duration `json:"run_timeout" validate:"gte=0"`
	CacheEnabled  bool          `json:"cache_enabled"`

	HistoryProvider string `json:"history_provider" validate:"oneof=yahoo longport"`
	EdgarUserAgent  string `json:"edgar_user_agent" validate:"required"`

	Debug            bool `json:"debug"`
	EinoDebugEnabled bool `json:"eino_debug_enabled"`

	LogLevel   string `json:"log_level" validate:"oneof=debug info warn error"`
	LogPretty  bool   `json:"log_pretty"`
	ServerPort int    `json:"server_port" validate:"gt=0,lt=65536"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// AI Model API Keys
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	// Market data API keys
	FinnhubAPIKey string `json:"finnhub_api_key"`
}

var validate = validator.New()

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns the defaults with every directory rooted at root.
// It does not read the environment.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		DownloadDir:  filepath.Join(root, "downloads", "edgar"),
		DBPath:       filepath.Join(root, "data", "stockpilot.db"),

		LLMProvider: ProviderOpenAI,
		LLMModel:    "gpt-4o-mini",
		SummaryLLM:  "gpt-4",
		BackendURL:  "",
		Temperature: 0.7,
		MaxTokens:   800,

		Budget:              100,
		ScanLimit:           20,
		Workers:             1,
		FetchPriceHistory:   true,
		FetchFilings:        true,
		HistoryPeriod:       "6mo",
		HistoryInterval:     "1d",
		RecommendationsTail: 10,
		NewsDays:            30,
		ScannerEstimator:    EstimatorHistory,
		ScannerSeed:         42,

		RetryAttempts: 0,
		HTTPTimeout:   10 * time.Second,
		RunTimeout:    0,
		CacheEnabled:  true,

		HistoryProvider: HistoryProviderYahoo,
		EdgarUserAgent:  "StockPilot/0.1 (contact@example.com)",

		LogLevel:   "info",
		LogPretty:  true,
		ServerPort: 8080,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("STOCKPILOT_DOWNLOAD_DIR"); val != "" {
		c.DownloadDir = val
	}
	if val := os.Getenv("STOCKPILOT_DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("SUMMARY_LLM"); val != "" {
		c.SummaryLLM = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		if v, err := strconv.ParseFloat(val, 32); err == nil {
			c.Temperature = float32(v)
		}
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}

	if val := os.Getenv("STOCKPILOT_BUDGET"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.Budget = v
		}
	}
	if val := os.Getenv("STOCKPILOT_SCAN_LIMIT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.ScanLimit = v
		}
	}
	if val := os.Getenv("STOCKPILOT_WORKERS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.Workers = v
		}
	}
	if val := os.Getenv("STOCKPILOT_FETCH_PRICE_HISTORY"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.FetchPriceHistory = enabled
		}
	}
	if val := os.Getenv("STOCKPILOT_FETCH_FILINGS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.FetchFilings = enabled
		}
	}
	if val := os.Getenv("STOCKPILOT_HISTORY_PERIOD"); val != "" {
		c.HistoryPeriod = val
	}
	if val := os.Getenv("STOCKPILOT_HISTORY_INTERVAL"); val != "" {
		c.HistoryInterval = val
	}
	if val := os.Getenv("STOCKPILOT_SCANNER_ESTIMATOR"); val != "" {
		c.ScannerEstimator = strings.ToLower(val)
	}
	if val := os.Getenv("STOCKPILOT_SCANNER_SEED"); val != "" {
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.ScannerSeed = v
		}
	}
	if val := os.Getenv("STOCKPILOT_RECONCILE_SECTOR_CAP"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.ReconcileSectorCap = enabled
		}
	}

	if val := os.Getenv("STOCKPILOT_RETRY_ATTEMPTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RetryAttempts = v
		}
	}
	if val := os.Getenv("STOCKPILOT_HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTPTimeout = d
		}
	}
	if val := os.Getenv("STOCKPILOT_RUN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.RunTimeout = d
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("STOCKPILOT_HISTORY_PROVIDER"); val != "" {
		c.HistoryProvider = strings.ToLower(val)
	}
	if val := os.Getenv("EDGAR_USER_AGENT"); val != "" {
		c.EdgarUserAgent = val
	}

	if val := os.Getenv("STOCKPILOT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_PRETTY"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.LogPretty = enabled
		}
	}
	if val := os.Getenv("STOCKPILOT_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.ServerPort = port
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
}

// Validate checks field ranges and that the selected LLM provider has a credential.
// ErrInvalidConfig wraps every validation and decoding failure.
var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q (value %v)", ErrInvalidConfig, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.HistoryProvider == HistoryProviderLongport &&
		(c.LongportAppKey == "" || c.LongportAppSecret == "" || c.LongportAccessToken == "") {
		return fmt.Errorf("%w: longport history provider selected but longport credentials are not configured", ErrInvalidConfig)
	}
	return nil
}

// LLMAPIKey returns the credential for the configured provider.
func (c Config) LLMAPIKey() string {
	if c.LLMProvider == ProviderDeepSeek {
		return c.DeepSeekAPIKey
	}
	return c.OpenAIAPIKey
}

// RequireLLMCredential is the startup check for commands that call the model.
func (c Config) RequireLLMCredential() error {
	if strings.TrimSpace(c.LLMAPIKey()) == "" {
		return fmt.Errorf("%s api key is required", c.LLMProvider)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir, c.DownloadDir}
	if c.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.DBPath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
