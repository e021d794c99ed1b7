package config

import "fmt"

// Validate checks invariants that setDefaults/LoadFromEnv cannot fix
// up on their own.
func (c *Config) Validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("database.name must not be empty")
	}
	if c.Extension.SchemaName == "" {
		return fmt.Errorf("extension.schema_name must not be empty")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	if c.Queue.EnqueueRetries <= 0 {
		return fmt.Errorf("queue.enqueue_retries must be positive, got %d", c.Queue.EnqueueRetries)
	}
	if c.Executor.WorkerCount < 0 {
		return fmt.Errorf("executor.worker_count must not be negative, got %d", c.Executor.WorkerCount)
	}
	return nil
}
