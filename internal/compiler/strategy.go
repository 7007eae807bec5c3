package compiler

import (
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/topology"
)

// SelectStrategy picks the code generation strategy for a topology.
// A forced strategy wins, except that native is refused on an irregular graph.
func SelectStrategy(topo *topology.Topology, force domain.Strategy) (domain.Strategy, error) {
	switch force {
	case domain.StrategyStateMachine:
		return domain.StrategyStateMachine, nil
	case domain.StrategyNative:
		if topo.Irregular() {
			return "", &domain.UnsupportedShapeError{
				Strategy: domain.StrategyNative,
				Shape:    string(topo.Shape),
				Reasons:  topo.ReasonStrings(),
			}
		}
		return domain.StrategyNative, nil
	}
	if topo.Irregular() {
		return domain.StrategyStateMachine, nil
	}
	return domain.StrategyNative, nil
}
