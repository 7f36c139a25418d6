package health

import "context"

// Pinger checks storage availability (key-value store, Postgres pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// GeneratorChecker checks text generator availability.
type GeneratorChecker interface {
	HealthCheck(ctx context.Context) error
}
