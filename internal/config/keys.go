package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

type accessor struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) accessor {
	return accessor{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(field func(c *Config) *bool) accessor {
	return accessor{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
			}
			*field(c) = b
			return nil
		},
	}
}

func intKey(field func(c *Config) *int) accessor {
	return accessor{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v)
			}
			*field(c) = n
			return nil
		},
	}
}

func durationKey(field func(c *Config) *time.Duration) accessor {
	return accessor{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a duration", ErrInvalidValue, v)
			}
			*field(c) = d
			return nil
		},
	}
}

var keys = map[string]accessor{
	"logging.level":              stringKey(func(c *Config) *string { return &c.Logging.Level }),
	"logging.format":             stringKey(func(c *Config) *string { return &c.Logging.Format }),
	"parse.default_format":       stringKey(func(c *Config) *string { return &c.Parse.DefaultFormat }),
	"parse.page_size":            intKey(func(c *Config) *int { return &c.Parse.PageSize }),
	"history.backend":            stringKey(func(c *Config) *string { return &c.History.Backend }),
	"history.path":               stringKey(func(c *Config) *string { return &c.History.Path }),
	"history.capacity":           intKey(func(c *Config) *int { return &c.History.Capacity }),
	"redis.url":                  stringKey(func(c *Config) *string { return &c.Redis.URL }),
	"redis.key_prefix":           stringKey(func(c *Config) *string { return &c.Redis.KeyPrefix }),
	"nats.enabled":               boolKey(func(c *Config) *bool { return &c.NATS.Enabled }),
	"nats.url":                   stringKey(func(c *Config) *string { return &c.NATS.URL }),
	"nats.name":                  stringKey(func(c *Config) *string { return &c.NATS.Name }),
	"nats.subject_prefix":        stringKey(func(c *Config) *string { return &c.NATS.SubjectPrefix }),
	"nats.timeout":               durationKey(func(c *Config) *time.Duration { return &c.NATS.Timeout }),
	"opensearch.enabled":         boolKey(func(c *Config) *bool { return &c.OpenSearch.Enabled }),
	"opensearch.url":             stringKey(func(c *Config) *string { return &c.OpenSearch.URL }),
	"opensearch.username":        stringKey(func(c *Config) *string { return &c.OpenSearch.Username }),
	"opensearch.tls_skip_verify": boolKey(func(c *Config) *bool { return &c.OpenSearch.TLSSkipVerify }),
	"opensearch.index_prefix":    stringKey(func(c *Config) *string { return &c.OpenSearch.IndexPrefix }),
	"metrics.textfile":           stringKey(func(c *Config) *string { return &c.Metrics.Textfile }),
}

// Keys lists the settable keys in sorted order. Secrets are not listed and
// can only be set in the file or through the environment.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the value of a dotted key.
func (c *Config) Get(key string) (string, error) {
	a, ok := keys[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return a.get(c), nil
}

// Set assigns a dotted key and validates the result. On error the config is
// left unchanged.
func (c *Config) Set(key, value string) error {
	a, ok := keys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	candidate := *c
	if err := a.set(&candidate, value); err != nil {
		return err
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	*c = candidate
	return nil
}
