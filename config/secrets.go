package config

import (
	"net/url"
)

const mask = "****"

// Redacted returns a copy of cfg safe to print: API keys, tokens, passwords
// and webhook URLs are masked.
func Redacted(cfg *Config) *Config {
	c := *cfg
	c.Notify.Kinds = append([]string(nil), cfg.Notify.Kinds...)

	c.Feed.APIKey = maskStr(c.Feed.APIKey)
	c.Store.Redis.Password = maskStr(c.Store.Redis.Password)
	c.Store.Postgres.Password = maskStr(c.Store.Postgres.Password)
	c.Store.Postgres.DSN = maskURL(c.Store.Postgres.DSN)
	c.Notify.DiscordWebhookURL = maskURL(c.Notify.DiscordWebhookURL)
	c.Notify.WebhookURL = maskURL(c.Notify.WebhookURL)
	c.Notify.TelegramToken = maskStr(c.Notify.TelegramToken)
	return &c
}

func maskStr(s string) string {
	if s == "" {
		return ""
	}
	return mask
}

// maskURL keeps scheme and host so the target is still recognisable.
func maskURL(s string) string {
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return mask
	}
	return u.Scheme + "://" + u.Host + "/" + mask
}
