package sources

import (
	"fmt"
	"net/url"
	"strings"

	"event-catalog/core/reconcile"
	"event-catalog/core/storage"

	"go.uber.org/zap"
)

// FromConfig builds the configured sources in a stable order: feeds, then the
// bucket drop, then fixture files. The bucket source is skipped when client is nil.
func FromConfig(cfg Config, client storage.Client, bucket string, logger *zap.Logger) ([]reconcile.Source, error) {
	var out []reconcile.Source
	seen := make(map[string]struct{})
	add := func(src reconcile.Source) error {
		if _, dup := seen[src.Name()]; dup {
			return fmt.Errorf("duplicate source name %q", src.Name())
		}
		seen[src.Name()] = struct{}{}
		out = append(out, src)
		return nil
	}

	for _, entry := range cfg.Feeds {
		name, rawURL, err := parseFeed(entry)
		if err != nil {
			return nil, err
		}
		if err := add(NewFeed(name, rawURL, nil, cfg)); err != nil {
			return nil, err
		}
	}

	if cfg.BucketPrefix != "" {
		if client == nil {
			logger.Warn("Bucket source configured without storage, skipping", zap.String("prefix", cfg.BucketPrefix))
		} else if err := add(NewBucket(client, bucket, cfg.BucketPrefix, cfg.MaxBytes, logger)); err != nil {
			return nil, err
		}
	}

	for _, path := range cfg.Files {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := add(NewFile(path)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// parseFeed splits "name=url". A bare URL is named after its host.
func parseFeed(entry string) (string, string, error) {
	entry = strings.TrimSpace(entry)
	name, rawURL, named := strings.Cut(entry, "=")
	if !named || strings.Contains(name, "/") {
		name, rawURL = "", entry
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", fmt.Errorf("invalid feed %q", entry)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = u.Hostname()
	}
	return name, u.String(), nil
}
