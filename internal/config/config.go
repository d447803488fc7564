package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	BaseURL      string `mapstructure:"BASE_URL" validate:"omitempty,url"`
	JWTSecret    string `mapstructure:"JWT_SECRET" validate:"required,min=32"`

	// BypassToken unlocks registration for every event, next to the per-event password.
	BypassToken string `mapstructure:"BYPASS_TOKEN"`

	MailFrom     string `mapstructure:"MAIL_FROM" validate:"required,email"`
	MailTo       string `mapstructure:"MAIL_TO" validate:"omitempty,email"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	OAuthClientID     string `mapstructure:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `mapstructure:"OAUTH_CLIENT_SECRET"`
	OAuthAuthURL      string `mapstructure:"OAUTH_AUTH_URL" validate:"omitempty,url"`
	OAuthTokenURL     string `mapstructure:"OAUTH_TOKEN_URL" validate:"omitempty,url"`
	OAuthUserInfoURL  string `mapstructure:"OAUTH_USERINFO_URL" validate:"omitempty,url"`
	OAuthRedirectURL  string `mapstructure:"OAUTH_REDIRECT_URL" validate:"omitempty,url"`

	PostalcodeAPIURL  string `mapstructure:"POSTALCODE_API_URL" validate:"required,url"`
	PostalcodeCountry string `mapstructure:"POSTALCODE_COUNTRY" validate:"required,len=2"`
	RedisURL          string `mapstructure:"REDIS_URL"`
	RegionCacheTTL    string `mapstructure:"REGION_CACHE_TTL"`

	MemberCountSchedule string `mapstructure:"MEMBER_COUNT_SCHEDULE"`

	Labels map[string]string `mapstructure:"LABELS"`
}

var validate = validator.New()

// Validate checks the addresses and URLs that are used to reach external services.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config value for %s (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	if c.OAuthClientID != "" && (c.OAuthAuthURL == "" || c.OAuthTokenURL == "" || c.OAuthUserInfoURL == "") {
		return errors.New("OAUTH_AUTH_URL, OAUTH_TOKEN_URL and OAUTH_USERINFO_URL are required when OAUTH_CLIENT_ID is set")
	}
	return nil
}

// LoadConfig reads the environment and, when configFile is set, the given config file.
func LoadConfig(configFile string) *Config {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "ruestzeit.db")
	v.SetDefault("BASE_URL", "http://127.0.0.1:8080")
	v.SetDefault("MAIL_FROM", "no-reply@kirche-hohndorf.de")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 25)
	v.SetDefault("OAUTH_REDIRECT_URL", "http://127.0.0.1:8080/admin/auth/callback")
	v.SetDefault("POSTALCODE_API_URL", "https://openplzapi.org")
	v.SetDefault("POSTALCODE_COUNTRY", "DE")
	v.SetDefault("REGION_CACHE_TTL", "720h")
	v.SetDefault("MEMBER_COUNT_SCHEDULE", "@every 10m")

	v.BindEnv("JWT_SECRET")
	v.BindEnv("BYPASS_TOKEN")
	v.BindEnv("MAIL_TO")
	v.BindEnv("SMTP_USERNAME")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("DISCORD_BOT_TOKEN")
	v.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	v.BindEnv("OAUTH_CLIENT_ID")
	v.BindEnv("OAUTH_CLIENT_SECRET")
	v.BindEnv("OAUTH_AUTH_URL")
	v.BindEnv("OAUTH_TOKEN_URL")
	v.BindEnv("OAUTH_USERINFO_URL")
	v.BindEnv("REDIS_URL")

	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("Unable to read config file %s: %v", configFile, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
