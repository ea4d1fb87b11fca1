/*
Package runner plays a story in a terminal or over a line-based pipe.

The Runner drives an engine through a pluggable IOHandler: it renders the View of
the current state, reads a Command when the session waits for the reader, and
steps automatic nodes itself after a short delay. States can be saved to a
ports.StateStore after every transition so an interrupted session resumes
where it stopped.

# Key Components

  - Runner: the playback loop with signal handling and persistence.
  - TextHandler: interactive output with markdown, coloured speakers and numbered choices.
  - JSONHandler: NDJSON views out, commands such as {"choose":1} in.

# Usage

	r := runner.NewRunner(
		runner.WithEngine(engine),
		runner.WithSessionID("reader-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
