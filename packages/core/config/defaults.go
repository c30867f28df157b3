package config

import "github.com/abdul-hamid-achik/hitconn/packages/conn"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		AllowTrace:      BoolPtr(false),
		ChunkSize:       conn.DefaultChunkSize,
		Concurrency:     5,
		Count:           20,
		Output:          "console",
		LogLevel:        "warn",
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.Timeout == d.Timeout &&
		c.GetFollowRedirects() == d.GetFollowRedirects() &&
		c.MaxRedirects == d.MaxRedirects &&
		c.GetValidateSSL() == d.GetValidateSSL() &&
		c.Proxy == d.Proxy &&
		len(c.Headers) == 0 &&
		c.GetAllowTrace() == d.GetAllowTrace() &&
		c.ChunkSize == d.ChunkSize &&
		c.RateLimit == d.RateLimit &&
		c.MaxBodySize == d.MaxBodySize &&
		c.Concurrency == d.Concurrency &&
		c.Count == d.Count &&
		c.Output == d.Output &&
		c.LogLevel == d.LogLevel &&
		c.GetVerbose() == d.GetVerbose() &&
		c.GetNoColor() == d.GetNoColor()
}
