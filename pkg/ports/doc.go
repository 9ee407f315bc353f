/*
Package ports defines the driven ports (interfaces) of the missive assistant.

These interfaces decouple the orchestration core from external implementations,
allowing the engine to work with various models, providers and storage backends.

# Key Interfaces

  - ModelGateway: Returns the next assistant message for a history and tool catalog.
  - Completer: Plain and structured text completion used by model-backed tools.
  - Mailbox / Calendar: Provider handles injected into tools per session.
  - ConversationStore: Persists the per-session message history.
  - CredentialStore: Keeps opaque per-session provider credentials.
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
