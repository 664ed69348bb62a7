package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory. Attachments are stored under Data/attachments.
	Data string
	// DSN points to where t3chat stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// JWTSecret verifies HS256 access tokens issued by the identity provider.
	JWTSecret string
	// MaxUploadBytes caps a single attachment upload.
	MaxUploadBytes int64

	// AI Configuration
	AIEnabled           bool   // T3CHAT_AI_ENABLED
	AIDefaultModel      string // T3CHAT_AI_DEFAULT_MODEL (default: gpt-4o-mini)
	AIUtilityModel      string // T3CHAT_AI_UTILITY_MODEL, used for titles, index and autocomplete
	AIOpenAIAPIKey      string // T3CHAT_AI_OPENAI_API_KEY
	AIOpenAIBaseURL     string // T3CHAT_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIDeepSeekAPIKey    string // T3CHAT_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL   string // T3CHAT_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AIOpenRouterAPIKey  string // T3CHAT_AI_OPENROUTER_API_KEY
	AIOpenRouterBaseURL string // T3CHAT_AI_OPENROUTER_BASE_URL (default: https://openrouter.ai/api/v1)
	AIGeminiAPIKey      string // T3CHAT_AI_GEMINI_API_KEY
	AIGeminiBaseURL     string // T3CHAT_AI_GEMINI_BASE_URL (default: OpenAI-compatible Gemini endpoint)
	AIOllamaBaseURL     string // T3CHAT_AI_OLLAMA_BASE_URL (default: "", disabled)

	// Tools
	WikipediaBaseURL string // T3CHAT_WIKIPEDIA_BASE_URL (default: https://en.wikipedia.org)
	// TikaURL enables text extraction of PDF and Office attachments (default: "", disabled).
	TikaURL string // T3CHAT_TIKA_URL
}

const defaultMaxUploadBytes = 10 << 20

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIOpenAIAPIKey != "" || p.AIDeepSeekAPIKey != "" || p.AIOpenRouterAPIKey != "" ||
		p.AIGeminiAPIKey != "" || p.AIOllamaBaseURL != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the AI and tool configuration from environment variables.
// Values already set on the profile (from flags) take precedence over the defaults.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("T3CHAT_AI_ENABLED") == "true"
	p.AIDefaultModel = getEnvOrDefault("T3CHAT_AI_DEFAULT_MODEL", "gpt-4o-mini")
	p.AIUtilityModel = getEnvOrDefault("T3CHAT_AI_UTILITY_MODEL", p.AIDefaultModel)
	p.AIOpenAIAPIKey = os.Getenv("T3CHAT_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("T3CHAT_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIDeepSeekAPIKey = os.Getenv("T3CHAT_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("T3CHAT_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOpenRouterAPIKey = os.Getenv("T3CHAT_AI_OPENROUTER_API_KEY")
	p.AIOpenRouterBaseURL = getEnvOrDefault("T3CHAT_AI_OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	p.AIGeminiAPIKey = os.Getenv("T3CHAT_AI_GEMINI_API_KEY")
	p.AIGeminiBaseURL = getEnvOrDefault("T3CHAT_AI_GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai")
	p.AIOllamaBaseURL = os.Getenv("T3CHAT_AI_OLLAMA_BASE_URL")

	p.WikipediaBaseURL = getEnvOrDefault("T3CHAT_WIKIPEDIA_BASE_URL", "https://en.wikipedia.org")
	p.TikaURL = os.Getenv("T3CHAT_TIKA_URL")

	if p.JWTSecret == "" {
		p.JWTSecret = os.Getenv("T3CHAT_JWT_SECRET")
	}
	if p.MaxUploadBytes == 0 {
		if v, err := strconv.ParseInt(os.Getenv("T3CHAT_MAX_UPLOAD_BYTES"), 10, 64); err == nil && v > 0 {
			p.MaxUploadBytes = v
		} else {
			p.MaxUploadBytes = defaultMaxUploadBytes
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "t3chat")
		} else {
			p.Data = "/var/opt/t3chat"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}
	if _, err := os.Stat(p.Data); os.IsNotExist(err) {
		if err := os.MkdirAll(p.Data, 0770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("t3chat_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}
	if p.Mode == "prod" && p.JWTSecret == "" {
		return errors.New("jwt secret is required in prod mode")
	}
	if p.MaxUploadBytes <= 0 {
		p.MaxUploadBytes = defaultMaxUploadBytes
	}

	return nil
}

// AttachmentDir returns the directory attachment blobs are written to.
func (p *Profile) AttachmentDir() string {
	return filepath.Join(p.Data, "attachments")
}
