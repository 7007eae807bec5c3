/*
Package ports defines the driven ports (interfaces) of the cafe services.

The transpiler itself is pure; these interfaces decouple the HTTP and MCP
surfaces from the backends that keep automations between requests.

# Key Interfaces

  - AutomationStore: persists emitted automation documents (memory, file, redis, sqlite).
  - DistributedLocker: serialises concurrent writes to the same automation across replicas.
*/
package ports
