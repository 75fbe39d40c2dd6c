/*
Package runner implements the line-oriented conversation loop that drives a
stagegate Engine from a terminal or a pipe.

Each line read from an IOHandler becomes one turn. When the turn mandates a
search or booking, the runner asks an ActionInterceptor for approval, hands
the action to a ports.ActionExecutor and reports the outcome back through
Engine.Complete, so a mandated action is never silently skipped.

# Key Components

  - Runner: reads input, runs turns and executes mandated actions.
  - IOHandler: decouples presentation (TextHandler for humans, JSONHandler
    for JSON Lines).
  - SanitizeInput: size and control-character hygiene applied to every line.

# Usage

	r := runner.NewRunner(
		runner.WithEngine(eng),
		runner.WithSessionID("user-1"),
		runner.WithExecutor(process.NewExecutor(process.WithProviders(providers))),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdout, runner.WithStdin())),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
