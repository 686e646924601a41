// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TokenRefresher: Exchanges a refresh token with the identity provider
//   - TaskSource: Fetches task records from the upstream task API
//   - Publisher: Delivers payloads to the message broker
//   - CredentialsStore: Durable credential side-file persistence
//   - ConfigStore: Application configuration
//   - SchedulerStore: Scheduler task state and run history
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
