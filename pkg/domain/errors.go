package domain

import "errors"

// ErrUnrecognizedOption is returned when the user text matches none of the node options.
var ErrUnrecognizedOption = errors.New("unrecognized option")

// ErrNodeNotFound is returned when a transition points to a node missing from the catalog.
var ErrNodeNotFound = errors.New("node not found")

// ErrDynamicLookupMiss is returned when no stored datum resolves a dynamic response.
var ErrDynamicLookupMiss = errors.New("dynamic lookup miss")

// ErrSessionNotFound is returned when a connection ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnavailable is returned when the engine has no usable catalog.
var ErrUnavailable = errors.New("conversation engine unavailable")
