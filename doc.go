/*
Package sluice is an ordered, suspendable request-processing pipeline.

Independent contributors register step functions together with "before" and
"after" constraints on each other or on well-known stages (begin,
authentication, uri_matching, ..., end). On the first request the engine
linearizes every constraint exactly once into an immutable step list, then
drives each request through it with its own CommunicationContext.

# Concept

Every step returns a Continuation: Continue moves to the next step, RenderNow
jumps straight to the render section, Abort stops the run. A host may set a
suspend marker on a run; the engine then hands control back once that step is
done, and a later Advance resumes exactly where the run stopped. Faults and
panics inside steps abort only the request that raised them.

# Usage

	eng, err := sluice.New()
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	eng.Use("auth", checkAPIKey).During(domain.StageAuthentication)
	eng.Use("render", renderJSON).During(domain.StageOperationResultInvocation)

	cc := eng.NewContext(ctx, &domain.Request{Method: "GET", Path: "/orders"})
	cc.Run.SuspendAfter = domain.StageURIMatching
	outcome, err := eng.Advance(cc) // suspended after URI matching
	...
	outcome, err = eng.Advance(cc) // resumes

Adapters for net/http, persistence of parked runs and an MCP server live
under pkg/adapters.
*/
package sluice
