/*
Package missive is a conversational assistant for email and calendar work.

At its core is a small turn-taking state machine: the model answers or asks for
tools, a router picks the next edge, tools run with per-session handles
injected, and sensitive actions (sending email) stop for human confirmation.

# Concept

A turn takes the conversation so far and returns it extended. The engine keeps
no state between turns; the caller (a session store, an HTTP handler, the REPL)
owns the history and decides how much of it to pass in.

	agent -> route -> tools -> agent ...
	               -> confirm (preview, ask, end)
	               -> end

Failures never escape a turn: unknown tools, malformed arguments, provider
outages, model errors, the step budget and the turn timeout all become
assistant messages the user can read.

# Usage

	gateway := gemini.New(gemini.Config{APIKey: key})
	eng, err := missive.New(gateway)
	if err != nil {
		log.Fatal(err)
	}

	env := tools.Environment{Mail: mailbox, Calendar: calendar}
	history := []domain.Message{domain.UserMessage("What's on my calendar this week?")}

	history, err = eng.RunTurn(ctx, history, env)
	if err != nil {
		log.Fatal(err) // only an empty history fails
	}
	fmt.Println(history[len(history)-1].Content)
*/
package missive
