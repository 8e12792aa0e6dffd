package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	GeminiKey   string
	GeminiModel string
	CatalogDSN  string
	OrdersDSN   string
	Document    DocumentConfig
}

type DocumentConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads configuration from .env, flags, and the environment. A missing
// reasoning-engine key is the only fatal condition: everything else falls
// back to in-process defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	key := firstNonEmpty(
		strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
	)
	if key == "" {
		return nil, fmt.Errorf("config: GEMINI_API_KEY is required")
	}

	return &Config{
		Port:        *port,
		Env:         env,
		GeminiKey:   key,
		GeminiModel: firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), "gemini-2.0-flash"),
		CatalogDSN:  strings.TrimSpace(os.Getenv("CATALOG_PG_DSN")),
		OrdersDSN:   strings.TrimSpace(os.Getenv("ORDERS_PG_DSN")),
		Document:    loadDocumentConfig(env),
	}, nil
}

func loadDocumentConfig(env string) DocumentConfig {
	endpoint := resolveDocumentEndpoint(env)
	return DocumentConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_BUCKET")), "orderdesk-documents"),
		UseSSL:    resolveDocumentUseSSL(env),
	}
}

func resolveDocumentEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("DOCUMENT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("DOCUMENT_S3_ENDPOINT"))
}

func resolveDocumentUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("DOCUMENT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
