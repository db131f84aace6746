// Package redis adapts a Redis server to the worker's KeyValueStorage and JobQueue
// interfaces. The intake service writes job credentials as plain string keys and
// publishes job bodies on pub/sub channels.
//
// Usage:
//
//	client, err := redisstore.NewClient(ctx, &config.Redis)
//	kv := redisstore.NewKVStorage(client, time.Hour, logger)
//	q, err := redisstore.NewQueue(ctx, client, []string{"quoteQueue", "dataQueue"}, logger)
package redis
