package dataflows

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CacheManager handles file-based caching for data
type CacheManager struct {
	cacheDir     string
	ttl          time.Duration
	cacheEnabled bool
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string, ttl time.Duration, cacheEnabled bool) *CacheManager {
	return &CacheManager{
		cacheDir:     cacheDir,
		ttl:          ttl,
		cacheEnabled: cacheEnabled && cacheDir != "",
	}
}

func (cm *CacheManager) getCacheKey(source, method string, params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s_%s_%x.json", source, method, hash)
}

// Get retrieves data from cache if not expired
func (cm *CacheManager) Get(source, method string, params interface{}, result interface{}) bool {
	if cm == nil || !cm.cacheEnabled {
		return false
	}

	filePath := filepath.Join(cm.cacheDir, cm.getCacheKey(source, method, params))

	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > cm.ttl {
		os.Remove(filePath)
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

// Set stores data in cache
func (cm *CacheManager) Set(source, method string, params interface{}, data interface{}) error {
	if cm == nil || !cm.cacheEnabled {
		return nil
	}
	return SaveDataToFile(data, filepath.Join(cm.cacheDir, cm.getCacheKey(source, method, params)))
}

// RetryConfig configures retry behavior. MaxRetries of 0 means a single attempt.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns the backoff schedule with the given retry count.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}
}

// WithRetry runs fn with exponential backoff and full jitter. Missing
// credentials and not-found errors are returned without retrying.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(cfg.BaseDelay) * pow(cfg.Multiplier, attempt-1))
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			if delay > 0 {
				delay = time.Duration(rand.Int64N(int64(delay)) + 1)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrMissingAPIKey) || errors.Is(lastErr, ErrNotFound) {
			return lastErr
		}
		if ctx.Err() != nil {
			return errors.Join(lastErr, ctx.Err())
		}
	}
	if cfg.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// ValidateSymbol checks if a stock symbol is valid format
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if len(symbol) == 0 {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 10 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	return nil
}

// NormalizeSymbol converts symbol to standard format. Class shares use a dash
// ("BRK.B" becomes "BRK-B").
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(symbol)), ".", "-")
}

// PeriodStart returns the start of a lookback period such as "5d", "6mo" or "1y".
func PeriodStart(end time.Time, period string) (time.Time, error) {
	switch period {
	case "5d":
		return end.AddDate(0, 0, -5), nil
	case "1mo":
		return end.AddDate(0, -1, 0), nil
	case "3mo":
		return end.AddDate(0, -3, 0), nil
	case "6mo":
		return end.AddDate(0, -6, 0), nil
	case "1y":
		return end.AddDate(-1, 0, 0), nil
	case "2y":
		return end.AddDate(-2, 0, 0), nil
	case "5y":
		return end.AddDate(-5, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("unsupported period %q", period)
}

// SaveDataToFile saves structured data to a JSON file
func SaveDataToFile(data interface{}, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, 0o644)
}

func floatPtr(v float64) *float64 {
	return &v
}

// nonZero treats a zero value from a provider as unknown.
func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
