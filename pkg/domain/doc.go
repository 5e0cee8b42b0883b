/*
Package domain contains the core domain models of the sequence engine.

It defines the vocabulary shared by the engine, its adapters and its hosts:
the control signals a step may raise, the stages of a loop, the error
taxonomy of a run, lifecycle hooks and the persisted run record. This package
is kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Signal: The control request raised by a step (Resolve, Reject, ExitLoop).
  - Outcome: The explicit result of one step invocation (signal + value).
  - Stage: The progress of a loop descriptor within a single run.
  - RunRecord: A persisted snapshot of a settled run.
*/
package domain
