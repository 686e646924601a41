// Package domain contains the core business types for taskbridge:
// credentials, tasks, sync results, scheduler state and the error taxonomy.
// It has no dependencies on adapters or external services.
package domain
