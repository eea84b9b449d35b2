/*
Package domain contains the core models shared by every Fable component.

It defines the authored entities of the story graph, the payloads exchanged with
scripts, the asset and save-game records, and the sentinel errors surfaced by the
engine. The package is kept free of I/O so adapters and runtime code can depend on it
without cycles.

# Key Entities

  - State: An authored node of the story graph with optional script hooks.
  - Transition: A named edge from a State to the key of the next State.
  - AssetDescriptor: Metadata locating a localized asset (text, image, state, script).
  - SaveGame: The portable snapshot of a session (user name, current state, vars).
*/
package domain
