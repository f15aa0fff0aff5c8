package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the attendance service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	DatabaseURL string
	RedisURL    string
	NATSURL     string

	JWTSecret string
	// QRSecret signs attendance proof tokens. Kept separate from the auth
	// secret so rotating one does not invalidate the other.
	QRSecret string

	QRProofTTL         time.Duration
	ManualCodeTTL      time.Duration
	FaceMatchTolerance float64
	FaceServiceURL     string
	MaxEnrollSamples   int

	DashboardCacheTTL time.Duration
	EventChannelBase  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PRESENSI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Presensi API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("qr.proof_ttl", "5m")
	v.SetDefault("manual_code.ttl", "15m")
	v.SetDefault("face.tolerance", 0.5)
	v.SetDefault("face.max_enroll_samples", 5)
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("event.channel_base", "presensi")
	v.SetDefault("cloudinary.folder", "presensi/faces")

	qrTTL, err := time.ParseDuration(v.GetString("qr.proof_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid qr proof ttl: %w", err)
	}

	codeTTL, err := time.ParseDuration(v.GetString("manual_code.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid manual code ttl: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("dashboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		QRSecret:               v.GetString("qr.secret"),
		QRProofTTL:             qrTTL,
		ManualCodeTTL:          codeTTL,
		FaceMatchTolerance:     v.GetFloat64("face.tolerance"),
		FaceServiceURL:         v.GetString("face.service_url"),
		MaxEnrollSamples:       v.GetInt("face.max_enroll_samples"),
		DashboardCacheTTL:      cacheTTL,
		EventChannelBase:       v.GetString("event.channel_base"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.QRSecret == "" {
		cfg.QRSecret = cfg.JWTSecret
	}

	if cfg.FaceMatchTolerance <= 0 || cfg.FaceMatchTolerance >= 1 {
		cfg.FaceMatchTolerance = 0.5
	}

	if cfg.MaxEnrollSamples <= 0 {
		cfg.MaxEnrollSamples = 5
	}

	return cfg, nil
}
