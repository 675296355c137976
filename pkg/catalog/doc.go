/*
Package catalog holds the ResponseCatalog: the dialogue graph and the two intent
corpora, compiled once from their catalog documents and read-only afterwards.

Raw control-flow sentinels ("none", "end", the leading "$" marker) are parsed
exactly once by Build into the tagged kinds of package domain, so the runtime
never re-inspects marker characters.

A *Catalog is safe for concurrent use by any number of sessions.
*/
package catalog
