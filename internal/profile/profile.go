// Package profile loads the runtime configuration for the mind-map server:
// LLM and embedding provider credentials, the storage backend, and the
// HTTP listen address.
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

// Profile is the configuration needed to start the mind-map server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol). All
	// providers (zai, deepseek, openai, siliconflow, dashscope,
	// openrouter, ollama) use the same config shape.
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  int // seconds, default 120

	// Embedding provider configuration.
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	// GitHub CDN upload configuration, optional.
	GitHubToken string
	GitHubOwner string
	GitHubRepo  string

	Mode   string // demo, dev, prod
	DSN    string
	Driver string // postgres, sqlite
	Data   string
	Addr   string
	Port   int
}

// llmProviderDefaults supplies a base URL and model when the operator sets
// a provider but not its connection details.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// IsCDNEnabled returns true if GitHub text upload is configured.
func (p *Profile) IsCDNEnabled() bool {
	return p.GitHubOwner != "" && p.GitHubToken != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables, applying
// provider defaults for whatever the operator leaves unset.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("MINDMAP_LLM_PROVIDER", "zai")
	p.LLMAPIKey = getEnvOrDefault("MINDMAP_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("MINDMAP_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("MINDMAP_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("MINDMAP_LLM_TIMEOUT_SECONDS", 120)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("profile: unknown LLM provider, using default zai", "provider", p.LLMProvider)
		p.LLMProvider = "zai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.EmbeddingProvider = getEnvOrDefault("MINDMAP_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("MINDMAP_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("MINDMAP_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("MINDMAP_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")

	p.GitHubToken = getEnvOrDefault("MINDMAP_GITHUB_TOKEN", "")
	p.GitHubOwner = getEnvOrDefault("MINDMAP_GITHUB_OWNER", "")
	p.GitHubRepo = getEnvOrDefault("MINDMAP_GITHUB_REPO", "")

	// Server settings already on p (from command-line flags) are kept
	// unless the matching environment variable is set.
	p.Mode = getEnvOrDefault("MINDMAP_MODE", p.Mode)
	if p.Mode == "" {
		p.Mode = "demo"
	}
	p.Driver = getEnvOrDefault("MINDMAP_DB_DRIVER", p.Driver)
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	p.DSN = getEnvOrDefault("MINDMAP_DB_DSN", p.DSN)
	p.Data = getEnvOrDefault("MINDMAP_DATA", p.Data)
	p.Addr = getEnvOrDefault("MINDMAP_ADDR", p.Addr)
	p.Port = getEnvOrDefaultInt("MINDMAP_PORT", p.Port)
	if p.Port == 0 {
		p.Port = 8585
	}
}

func checkDataDir(dataDir string) (string, error) {
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes Mode and, for the sqlite driver, derives a DSN from
// the data directory when the operator didn't supply one explicitly.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" {
		return nil
	}

	if p.DSN != "" {
		return nil
	}

	if p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "mindmapforge")
		} else {
			p.Data = "/var/opt/mindmapforge"
		}
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("profile: failed to create data directory", "data", p.Data, "error", err)
				return err
			}
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("profile: failed to check data directory", "data", p.Data, "error", err)
		return err
	}

	p.Data = dataDir
	dbFile := fmt.Sprintf("mindmapforge_%s.db", p.Mode)
	p.DSN = filepath.Join(dataDir, dbFile)
	return nil
}
