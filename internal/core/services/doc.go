// Package services implements the core business logic behind the driving
// ports: credential lifecycle management, the task sync pipeline, and the
// background scheduler. Services depend only on domain types and driven
// ports, never on concrete adapters.
package services
