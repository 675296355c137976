/*
Package dsl builds parley catalogs in Go instead of JSON or YAML documents.

It is handy for tests, examples and bots whose script is generated at runtime.
The builder produces the same catalog.Documents a file loader would read, so
every load-time check still applies.

Example usage:

	b := dsl.New()

	b.Node("HELLO").
		Say("What is your name?").
		SaveTo("name").
		Go("ASK_MOOD")

	b.Node("ASK_MOOD").
		Say("Are you happy or sad?").
		SaveTo("mood").
		Option("happy", "MOOD").
		Option("sad", "MOOD")

	b.Node("MOOD").Lookup("GREETING").Terminal()
	b.Node("GREETING_HAPPY").Say("Glad to hear it!").Terminal()
	b.Node("GREETING_SAD").Say("Sorry to hear that.").Terminal()

	b.Ungated("Hello!", "hello", "hi")

	eng, err := parley.New(parley.WithLoader(b.Loader()))
*/
package dsl
