/*
Package domain contains the core domain models of the parley conversation engine.

It defines the fundamental entities of the scripted dialogue and of the free-text
fallback: dialogue nodes, intent entries and the per-connection session state.
This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - DialogueNode: a keyed step of the scripted tree (Literal or DynamicLookup response,
    DirectEdge, OptionsDispatch or Terminal transition).
  - IntentEntry: a keyword pattern scored against free text (gated or ungated).
  - SessionState: the mutable record of one connection (current node, stored data, phase).
  - StoredDatum: one captured user answer tagged with its storage key.
*/
package domain
