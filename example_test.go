package cafe_test

import (
	"fmt"
	"log"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/dsl"
)

// ExampleTranspile builds a small branching graph and converts it.
func ExampleTranspile() {
	b := dsl.New("Hall light")
	b.Add("motion").Trigger("state", map[string]any{"entity_id": "binary_sensor.hall", "to": "on"}).Go("dark")
	b.Add("dark").Template("{{ is_state('sun.sun', 'below_horizon') }}").Then("on").Else("skip")
	b.Add("on").Call("light.turn_on").Entity("light.hall")
	b.Add("skip").Call("logbook.log").Data("message", "still bright")

	g, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	res := cafe.Transpile(g)
	fmt.Println(res.Success)
	fmt.Println(res.Output.Shape)
	fmt.Println(res.Output.Strategy)
	// Output:
	// true
	// tree-branching
	// native
}

// ExampleFromYAML imports a hand-written automation in the legacy dialect.
func ExampleFromYAML() {
	text := `
alias: Porch
trigger:
  platform: sun
  event: sunset
action:
  - service: light.turn_on
    target:
      entity_id: light.porch
`
	res := cafe.FromYAML([]byte(text))
	fmt.Println(res.Success)
	for _, n := range res.Graph.Nodes {
		fmt.Println(n.ID, n.Type)
	}
	fmt.Println(res.HadMetadata)
	// Output:
	// true
	// trigger_1 trigger
	// action_1 action
	// false
}

// ExampleWithForceStrategy writes a simple graph as a state machine.
func ExampleWithForceStrategy() {
	b := dsl.New("Forced")
	b.Add("t").Trigger("state", nil).Go("a")
	b.Add("a").Call("light.toggle")
	g, _ := b.Build()

	res := cafe.Transpile(g, cafe.WithForceStrategy(domain.StrategyStateMachine))
	fmt.Println(res.Output.Strategy)
	// Output:
	// state-machine
}
