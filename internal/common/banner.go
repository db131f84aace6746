package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Pricing Engine", GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("queue_backend", config.Queue.Backend).
		Str("quote_channel", config.Queue.QuoteChannel).
		Str("data_channel", config.Queue.DataChannel).
		Int("chunk_size", config.Salesforce.ChunkSize).
		Int("pool_size", config.Salesforce.PoolSize).
		Str("region", config.Pricing.Region).
		Msg("Worker configuration")
}
