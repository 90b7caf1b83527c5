package sources

// Config lists the upstream sources.
type Config struct {
	// Feeds are "name=url" pairs of JSON feeds. A bare URL is named after its host.
	Feeds []string `mapstructure:"feeds" default:""`
	// BucketPrefix enables the bucket source for objects under this prefix of the storage bucket.
	BucketPrefix string `mapstructure:"bucket_prefix" default:""`
	// Files are local JSON or YAML fixtures read on every run.
	Files []string `mapstructure:"files" default:""`
	// TimeoutSeconds bounds each feed request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// UserAgent is sent with feed requests.
	UserAgent string `mapstructure:"user_agent" default:"event-catalog/1.0"`
	// MaxBytes caps a single feed response or object.
	MaxBytes int64 `mapstructure:"max_bytes" default:"10485760"`
}
