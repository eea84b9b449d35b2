/*
Package ports defines the driven ports (interfaces) for the Fable engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to read authored content and persist save games with various backends.

# Key Interfaces

  - AssetSource: Lists asset descriptors and reads localized asset data (Memory, File, Blob).
  - SaveStore: Persists save games by slot (Memory, File, Redis).
*/
package ports
