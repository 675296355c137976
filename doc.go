/*
Package parley is a scripted chatbot conversation engine.

A conversation starts on a fixed dialogue tree: every node answers with a
canned response and moves on to the next node, either directly or by matching
the user's reply against a set of options. Selected answers are stored and
later used to pick a personalized response. Once the tree reaches an end
node the session switches, for good, to free-text mode, where each message is
answered with the best keyword match from two intent corpora.

# Catalog

The catalog is three documents, read once and shared by all sessions:

  - the dialogue graph (conversation.json): nodes with id, response,
    next_response_id ("none" for options, "end" to finish), stored,
    storage_key and options;
  - gated intents (responses.json): response, listOfWords, requiredWords;
  - ungated intents (single_responses.json): response, listOfWords.

A response starting with "$" is a dynamic lookup: "$_GREETING" resolves to the
node "GREETING_<ANSWER>" for the first stored answer that names an existing node.

# Usage

A transport maps its connection lifecycle onto three calls:

	eng, err := parley.New(parley.WithCatalogDir("./bot"))
	if err != nil {
		log.Fatal(err)
	}

	greeting, err := eng.OnConnect(ctx, connID)
	// send greeting.Text

	reply, err := eng.OnMessage(ctx, connID, "I'm happy")
	// send reply.Text

	_ = eng.OnDisconnect(ctx, connID)

Sessions are independent and may be served concurrently; turns of a single
session are serialized. The pkg/adapters/http package provides a WebSocket
server built on these calls, and cmd/parley wires everything into a CLI.
*/
package parley
