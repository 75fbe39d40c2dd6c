/*
Package domain contains the core models of the stagegate engine.

It defines the conversation stages, the confidence-scored slots collected from the
user, the per-session stage context and the decisions produced on every turn.
This package is kept pure and free of I/O or persistence concerns, so every other
package (stores, adapters, the orchestrator) can depend on it.

# Key Entities

  - Stage: one of the five ordered disclosure phases of a booking conversation.
  - Slot: a named travel field with a confidence score and provenance.
  - SessionContext: the per-session snapshot (stage, history, collected data, consents).
  - Classification: the per-turn reading of intent, chaos category, emotion and risk.
  - EnforcementResult: what the response generator must (or must not) do this turn.
*/
package domain
