package config

import "github.com/spf13/viper"

// Config carries everything the attest service reads from the environment.
type Config struct {
	ServicePort  string
	DatabaseURL  string
	NotifyURL    string
	NotifySecret string
	QgenURL      string
	BaseLinkURL  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", "8084")
	v.SetDefault("database_url", "")
	v.SetDefault("notify_url", "")
	v.SetDefault("notify_secret", "")
	v.SetDefault("qgen_url", "")
	v.SetDefault("base_link_url", "https://app.certflow.dev")
}

// Load binds defaults and environment variables (SERVICE_PORT, DATABASE_URL,
// NOTIFY_URL, NOTIFY_SECRET, QGEN_URL, BASE_LINK_URL).
func Load() Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return Config{
		ServicePort:  v.GetString("service_port"),
		DatabaseURL:  v.GetString("database_url"),
		NotifyURL:    v.GetString("notify_url"),
		NotifySecret: v.GetString("notify_secret"),
		QgenURL:      v.GetString("qgen_url"),
		BaseLinkURL:  v.GetString("base_link_url"),
	}
}
