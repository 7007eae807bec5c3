package domain

import "fmt"

// Validate checks the graph invariants and returns an *AggregateError listing
// every violation, or nil.
func Validate(g *Graph) error {
	if g == nil {
		return &AggregateError{Errors: []error{&StructuralError{Kind: KindMissingTrigger, Msg: "graph is nil"}}}
	}

	var errs []error
	types := make(map[string]NodeType, len(g.Nodes))
	triggers := 0

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			errs = append(errs, &StructuralError{Kind: KindMissingID, Msg: fmt.Sprintf("node at index %d has no id", i)})
			continue
		}
		if _, dup := types[n.ID]; dup {
			errs = append(errs, &StructuralError{Kind: KindDuplicateID, NodeID: n.ID, Msg: "node id is not unique"})
			continue
		}
		types[n.ID] = n.Type

		if !n.Type.Valid() {
			errs = append(errs, &StructuralError{Kind: KindBadPayload, NodeID: n.ID, Msg: fmt.Sprintf("unknown node type %q", n.Type)})
			continue
		}
		if n.Payload() == nil || n.payloadCount() != 1 {
			errs = append(errs, &StructuralError{Kind: KindBadPayload, NodeID: n.ID, Msg: fmt.Sprintf("%s node must carry exactly one %s payload", n.Type, n.Type)})
		}
		if n.Type == NodeTypeTrigger {
			triggers++
		}
	}

	if triggers == 0 {
		errs = append(errs, &StructuralError{Kind: KindMissingTrigger, Msg: "graph has no trigger node"})
	}

	for _, e := range g.Edges {
		srcType, srcOK := types[e.Source]
		tgtType, tgtOK := types[e.Target]
		if !srcOK {
			errs = append(errs, &StructuralError{Kind: KindDanglingEdge, EdgeID: e.ID, Msg: fmt.Sprintf("source %q does not exist", e.Source)})
		}
		if !tgtOK {
			errs = append(errs, &StructuralError{Kind: KindDanglingEdge, EdgeID: e.ID, Msg: fmt.Sprintf("target %q does not exist", e.Target)})
		}
		if tgtOK && tgtType == NodeTypeTrigger {
			errs = append(errs, &StructuralError{Kind: KindTriggerIncoming, NodeID: e.Target, EdgeID: e.ID, Msg: "trigger nodes cannot have incoming edges"})
		}
		if srcOK && srcType == NodeTypeCondition && e.SourceHandle != HandleTrue && e.SourceHandle != HandleFalse {
			errs = append(errs, &StructuralError{Kind: KindBadHandle, NodeID: e.Source, EdgeID: e.ID, Msg: fmt.Sprintf("condition edge handle must be %q or %q, got %q", HandleTrue, HandleFalse, e.SourceHandle)})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
