/*
Package cafe converts visual home-automation graphs into Home Assistant
automation YAML and reads such YAML back into graphs.

A graph is a set of typed nodes (trigger, condition, action, delay, wait) joined
by edges; edges leaving a condition carry a "true" or "false" handle. The
transpiler classifies the graph's shape and picks one of two strategies:

  - Native: linear and tree-branching graphs become ordinary triggers,
    conditions and action sequences, with if/then/else and choose blocks.
  - State machine: any other graph (rejoins, cycles, several entry points)
    becomes a dispatcher loop driven by a state variable.

Emitted documents carry the editor layout under variables._cafe_metadata, so
an import restores node ids and positions exactly.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/cafe"
		"github.com/aretw0/cafe/pkg/dsl"
	)

	func main() {
		b := dsl.New("Hall light")
		b.Add("motion").Trigger("state", map[string]any{"entity_id": "binary_sensor.hall", "to": "on"}).Go("on")
		b.Add("on").Call("light.turn_on").Entity("light.hall")

		g, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		res := cafe.Transpile(g)
		if !res.Success {
			log.Fatal(res.Errors)
		}
		fmt.Print(res.YAML)

		back := cafe.FromYAML([]byte(res.YAML))
		fmt.Println(back.HadMetadata) // true
	}
*/
package cafe
