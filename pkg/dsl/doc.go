/*
Package dsl provides a Go DSL for programmatically constructing hashfsm Definitions.

It defines state machines with a fluent builder instead of YAML or JSON
documents, which is handy for tests and for services that ship their
Definitions in code.

Example usage:

	b := dsl.New("JobFSM").Prefix("job:").Field("state").
		States("sleeping", "running", "cleaning")

	b.Event("run").From("sleeping").To("running")
	b.Event("clean").From("running").To("cleaning")
	b.Event("sleep").From("running", "cleaning").To("sleeping")

	def, err := b.Build()
	// ... module.CreateDefinition(ctx, def)

Several builders compile into a memory.Loader with Loader, ready for
Module.Load.
*/
package dsl
