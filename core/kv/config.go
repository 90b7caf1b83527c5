package kv

// Config holds configuration for the Redis connection.
type Config struct {
	// URL is a redis:// or rediss:// URL. Empty disables Redis-backed features.
	URL string `mapstructure:"url" default:""`
	// Prefix namespaces every key and channel this service uses.
	Prefix string `mapstructure:"prefix" default:"event-catalog"`
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Key joins the configured prefix and name.
func (c Config) Key(name string) string {
	if c.Prefix == "" {
		return name
	}
	return c.Prefix + ":" + name
}
