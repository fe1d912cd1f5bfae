/*
Package dsl describes a pipeline declaratively.

A Manifest lists the capabilities to resolve, their options and any ordering
constraints added on top of the ones each contributor declares itself. It is
usually written in YAML:

	name: orders
	render_after: operation_execution
	contributors:
	  - capability: request.id
	  - capability: auth.apikey
	    options:
	      header: X-API-Key
	      keys: [${API_KEY}]
	  - capability: resources.static
	    options:
	      routes:
	        - pattern: /orders/{id}
	          echo: true
	  - capability: render.json
	    after: [resources.execute]

The same manifest can be built in Go:

	m, err := dsl.New("orders").
		Add("request.id").
		Add("auth.apikey").Option("keys", []string{"secret"}).
		Add("render.json").After("resources.execute").
		Build()

Apply resolves the manifest against a registry and registers the result on
an engine.
*/
package dsl
