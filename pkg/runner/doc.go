/*
Package runner implements the conversational loop behind `missive chat`.

It reads user input through a pluggable IOHandler, runs each line as a turn
through the session Manager and hands the outcome back to the handler.

# Key Components

  - Runner: reads, runs the turn, writes; until EOF, /quit or an interrupt.
  - TextHandler: interactive terminal usage with an optional Markdown renderer.
  - JSONHandler: JSON-Lines protocol for driving the assistant from another process.
  - Response: the wire shape shared by the JSON handler, HTTP and MCP adapters.

# Usage

	r := runner.New(manager,
		runner.WithSessionID("user-1"),
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
