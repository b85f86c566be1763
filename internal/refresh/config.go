package refresh

import "time"

type Config struct {
	Enabled bool

	Brokers []string
	Topic   string
	GroupID string
	// only events for this dataset trigger a refresh; empty accepts all
	Dataset string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
}

func (c Config) withDefaults() Config {
	if c.Topic == "" {
		c.Topic = "county-data-refresh"
	}
	if c.GroupID == "" {
		c.GroupID = "county-overlay"
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 3 * time.Second
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = 30 * time.Second
	}
	return c
}
