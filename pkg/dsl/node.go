package dsl

import "github.com/aretw0/cafe/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Trigger marks the node as a trigger on the given platform.
func (n *NodeBuilder) Trigger(platform string, fields map[string]any) *NodeBuilder {
	n.node.Type = domain.NodeTypeTrigger
	n.node.Trigger = &domain.TriggerData{Platform: platform, Extra: domain.CloneMap(fields)}
	return n
}

// When marks the node as a condition of the given type.
func (n *NodeBuilder) When(condition string, fields map[string]any) *NodeBuilder {
	n.node.Type = domain.NodeTypeCondition
	n.node.Condition = &domain.ConditionData{Condition: condition, Extra: domain.CloneMap(fields)}
	return n
}

// Template marks the node as a template condition.
func (n *NodeBuilder) Template(tmpl string) *NodeBuilder {
	return n.When("template", map[string]any{"value_template": tmpl})
}

// Call marks the node as a service call.
func (n *NodeBuilder) Call(service string) *NodeBuilder {
	n.node.Type = domain.NodeTypeAction
	n.node.Action = &domain.ActionData{Service: service}
	return n
}

// Entity targets the service call at entity ids. A single id keeps the scalar form.
func (n *NodeBuilder) Entity(ids ...string) *NodeBuilder {
	if n.node.Action == nil {
		return n
	}
	if n.node.Action.Target == nil {
		n.node.Action.Target = &domain.Target{}
	}
	n.node.Action.Target.EntityID = domain.IDList{IDs: ids, Single: len(ids) == 1}
	return n
}

// Data adds a service data field.
func (n *NodeBuilder) Data(key string, value any) *NodeBuilder {
	if n.node.Action == nil {
		return n
	}
	if n.node.Action.Data == nil {
		n.node.Action.Data = map[string]any{}
	}
	n.node.Action.Data[key] = value
	return n
}

// Delay marks the node as a delay.
func (n *NodeBuilder) Delay(duration string) *NodeBuilder {
	n.node.Type = domain.NodeTypeDelay
	n.node.Delay = &domain.DelayData{Duration: domain.DurationFromText(duration)}
	return n
}

// WaitFor marks the node as a template wait.
func (n *NodeBuilder) WaitFor(tmpl string) *NodeBuilder {
	n.node.Type = domain.NodeTypeWait
	n.node.Wait = &domain.WaitData{Template: tmpl}
	return n
}

// Alias sets the display name.
func (n *NodeBuilder) Alias(alias string) *NodeBuilder {
	n.node.Alias = alias
	return n
}

// At places the node on the canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	return n
}

// Go adds a plain edge to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, target, "")
	return n
}

// Then adds the "true" edge of a condition.
func (n *NodeBuilder) Then(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, target, domain.HandleTrue)
	return n
}

// Else adds the "false" edge of a condition.
func (n *NodeBuilder) Else(target string) *NodeBuilder {
	n.builder.connect(n.node.ID, target, domain.HandleFalse)
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}
