package config

import (
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envOverrides carries secrets and deploy-specific knobs that should
// not live in the config file. A set variable wins over the file value.
type envOverrides struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	DomaAPIKey    string `env:"DOMA_API_KEY"`
	DomaBaseURL   string `env:"DOMA_BASE_URL"`
}

func applyEnvOverrides(cfg *Config) error {
	var ov envOverrides
	if err := cleanenv.ReadEnv(&ov); err != nil {
		return err
	}
	if v := strings.TrimSpace(ov.TelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(ov.DomaAPIKey); v != "" {
		cfg.Doma.APIKey = v
	}
	if v := strings.TrimSpace(ov.DomaBaseURL); v != "" {
		cfg.Doma.BaseURL = v
	}
	return nil
}
