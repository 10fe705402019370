package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port string

	// Azure Image Analysis
	VisionEndpoint string
	VisionKey      string

	// Telegram
	TelegramBotToken string
	WebhookURL       string
	ReviewerChatID   int64

	// WhatsApp Cloud API (Meta)
	MetaToken       string
	MetaPhoneID     string
	MetaVerifyToken string
	RequesterNumber string // USER01: sends photos
	ReviewerNumber  string // USER02: receives reports
	PublicBaseURL   string

	// Gemini arbiter
	UseLLMArbiter bool
	GeminiAPIKey  string
	GeminiModel   string

	StaticDir   string
	DatabaseURL string

	// Heuristic tuning (empirical constants, overridable)
	GridSize       int
	GridMaxExtra   int
	GridIoU        float64
	SubpartIoU     float64
	NonEEEMinHits  int
	LargeSizeRatio float64
	MinSide        int
	MaxSide        int
	EnableGridScan bool
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt64(k string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		VisionEndpoint: mustEnv("AI_SERVICE_ENDPOINT"),
		VisionKey:      mustEnv("AI_SERVICE_KEY"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		ReviewerChatID:   getEnvInt64("REVIEWER_CHAT_ID", 0),

		MetaToken:       getEnv("META_WHATSAPP_TOKEN", ""),
		MetaPhoneID:     getEnv("META_WHATSAPP_PHONE_ID", ""),
		MetaVerifyToken: getEnv("META_WEBHOOK_VERIFY_TOKEN", ""),
		RequesterNumber: getEnv("USER01_WHATSAPP", ""),
		ReviewerNumber:  getEnv("USER02_WHATSAPP", ""),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", ""),

		UseLLMArbiter: getEnvBool("USE_LLM_ARBITER", false),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		StaticDir:   getEnv("STATIC_DIR", "static"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		GridSize:       getEnvInt("GRID_SIZE", 3),
		GridMaxExtra:   getEnvInt("GRID_MAX_EXTRA", 10),
		GridIoU:        getEnvFloat("GRID_IOU_THRESHOLD", 0.2),
		SubpartIoU:     getEnvFloat("SUBPART_IOU_THRESHOLD", 0.2),
		NonEEEMinHits:  getEnvInt("NON_EEE_MIN_HITS", 2),
		LargeSizeRatio: getEnvFloat("LARGE_SIZE_RATIO", 0.20),
		MinSide:        getEnvInt("VISION_MIN_SIDE", 50),
		MaxSide:        getEnvInt("VISION_MAX_SIDE", 16000),
		EnableGridScan: getEnvBool("ENABLE_GRID_FALLBACK", true),
	}
}
