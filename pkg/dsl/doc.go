/*
Package dsl provides a fluent builder for automation graphs.

It is the programmatic counterpart of the visual editor: useful for tests,
examples and generating graphs from code.

Example usage:

	b := dsl.New("Night light")

	b.Add("motion").
		Trigger("state", map[string]any{"entity_id": "binary_sensor.hall", "to": "on"}).
		Go("dark")

	b.Add("dark").
		When("state", map[string]any{"entity_id": "sun.sun", "state": "below_horizon"}).
		Then("on").
		Else("off")

	b.Add("on").Call("light.turn_on").Entity("light.hall")
	b.Add("off").Call("light.turn_off").Entity("light.hall")

	graph, err := b.Build()
*/
package dsl
