/*
Package ports defines the driven ports (interfaces) for the parley engine.

These interfaces decouple the conversation core from external implementations,
allowing the engine to work with various catalog sources and session stores.

# Key Interfaces

  - CatalogLoader: Reads the dialogue graph and intent corpora (e.g., from files or memory).
  - SessionStore: Holds the SessionState of live connections.
  - DistributedLocker: Serializes turns of one connection across replicas.
*/
package ports
