/*
Package domain contains the core domain models of the missive assistant.

It defines the conversation vocabulary shared by the orchestrator, the model
gateway, the tools and every adapter. This package is kept pure and free of
external dependencies like I/O or persistence.

# Key Entities

  - Message: One entry of a conversation (user, assistant or tool result).
  - ToolCallRequest: A structured request emitted by the model to run a tool.
  - Conversation: The ordered, append-only message sequence of a session.
  - Confirmation: A pending sensitive action awaiting an explicit human turn.
  - Node: A static description of the orchestrator topology, for introspection.
*/
package domain
