/*
Package session keeps the live conversations of a chat server.

A session exists from connect to disconnect. The Manager serializes every
operation on one connection, locally through reference-counted mutexes and,
when a DistributedLocker is configured, across replicas. Different
connections proceed in parallel.
*/
package session
