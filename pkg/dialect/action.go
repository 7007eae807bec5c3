package dialect

import (
	"fmt"

	"github.com/aretw0/cafe/pkg/domain"
)

// knownSteps are action entries that are not service calls but are understood as is.
var knownSteps = []string{
	"delay", "wait_template", "wait_for_trigger", "condition",
	"if", "choose", "repeat", "parallel", "sequence",
	"event", "scene", "stop", "variables", "device_id", "set_conversation_response",
}

var dataKeys = []string{"data", "service_data", "data_template"}

var targetKeys = []string{domain.KeyEntityID, domain.KeyDeviceID, domain.KeyAreaID}

func (n *normalizer) actionList(path string, v any) []map[string]any {
	items := asList(v)
	if len(items) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		m, ok := item.(map[string]any)
		if !ok {
			n.warn(p, "action must be a mapping, got %T; skipped", item)
			continue
		}
		out = append(out, n.action(p, m))
	}
	return out
}

func (n *normalizer) actionsAny(path string, v any) []any {
	list := n.actionList(path, v)
	out := make([]any, len(list))
	for i := range list {
		out[i] = list[i]
	}
	return out
}

func (n *normalizer) action(path string, a map[string]any) map[string]any {
	out := domain.CloneMap(a)

	if service, ok := n.serviceName(path, out); ok {
		return n.serviceCall(path, out, service)
	}

	switch {
	case has(out, "if"):
		out["if"] = n.conditionsAny(path+".if", out["if"])
		if has(out, "then") {
			out["then"] = n.actionsAny(path+".then", out["then"])
		}
		if has(out, "else") {
			out["else"] = n.actionsAny(path+".else", out["else"])
		}
	case has(out, "choose"):
		opts := asList(out["choose"])
		choices := make([]any, 0, len(opts))
		for i, o := range opts {
			p := fmt.Sprintf("%s.choose[%d]", path, i)
			opt, ok := o.(map[string]any)
			if !ok {
				n.warn(p, "choose option must be a mapping, got %T; skipped", o)
				continue
			}
			opt = domain.CloneMap(opt)
			opt["conditions"] = n.conditionsAny(p+".conditions", opt["conditions"])
			opt["sequence"] = n.actionsAny(p+".sequence", opt["sequence"])
			choices = append(choices, opt)
		}
		out["choose"] = choices
		if has(out, "default") {
			out["default"] = n.actionsAny(path+".default", out["default"])
		}
	case has(out, "repeat"):
		if r, ok := out["repeat"].(map[string]any); ok {
			r = domain.CloneMap(r)
			if has(r, "sequence") {
				r["sequence"] = n.actionsAny(path+".repeat.sequence", r["sequence"])
			}
			for _, k := range []string{"until", "while"} {
				if has(r, k) {
					r[k] = n.conditionsAny(path+".repeat."+k, r[k])
				}
			}
			out["repeat"] = r
		}
	case has(out, "parallel"):
		out["parallel"] = n.actionsAny(path+".parallel", out["parallel"])
	case has(out, "sequence"):
		out["sequence"] = n.actionsAny(path+".sequence", out["sequence"])
	case has(out, domain.KeyCondition), hasAny(out, shorthandLogic...):
		return n.condition(path, out)
	case has(out, domain.KeyWaitTrig):
		out[domain.KeyWaitTrig] = n.triggerList(path+"."+domain.KeyWaitTrig, out[domain.KeyWaitTrig])
	}

	if !hasAny(out, knownSteps...) {
		n.warn(path, "entry names no action or service; kept verbatim as %s", domain.UnknownService)
	}
	return out
}

// serviceName finds the called service under "action", "service" or "service_template".
// The chosen key is removed.
func (n *normalizer) serviceName(path string, a map[string]any) (string, bool) {
	action, hasAction := a["action"].(string)
	service, hasService := a[domain.KeyService].(string)
	tmpl, hasTmpl := a["service_template"].(string)

	switch {
	case hasAction && hasService:
		if action != service {
			n.warn(path, "action %q and service %q disagree; using %q", action, service, action)
		} else {
			n.warn(path, "redundant service removed")
		}
		delete(a, "action")
		delete(a, domain.KeyService)
		return action, true
	case hasAction:
		delete(a, "action")
		return action, true
	case hasService:
		n.warn(path, "service is the legacy spelling of action")
		delete(a, domain.KeyService)
		return service, true
	case hasTmpl:
		n.warn(path, "service_template is deprecated; read as service")
		delete(a, "service_template")
		return tmpl, true
	}
	return "", false
}

func (n *normalizer) serviceCall(path string, a map[string]any, service string) map[string]any {
	a[domain.KeyService] = service

	var data map[string]any
	var dataFrom string
	for _, k := range dataKeys {
		v, ok := a[k]
		if !ok {
			continue
		}
		delete(a, k)
		m, isMap := v.(map[string]any)
		if !isMap {
			n.warn(path+"."+k, "expected a mapping, got %T; ignored", v)
			continue
		}
		if k != domain.KeyData {
			n.warn(path+"."+k, "%s is deprecated; read as data", k)
		}
		if data == nil {
			data, dataFrom = m, k
			continue
		}
		n.warn(path+"."+k, "merged into %s; existing keys kept", dataFrom)
		for dk, dv := range m {
			if _, exists := data[dk]; !exists {
				data[dk] = dv
			}
		}
	}
	if data != nil {
		a[domain.KeyData] = data
	}

	target, _ := a[domain.KeyTarget].(map[string]any)
	for _, k := range targetKeys {
		v, ok := a[k]
		if !ok {
			continue
		}
		delete(a, k)
		if target == nil {
			target = map[string]any{}
		}
		if _, exists := target[k]; exists {
			n.warn(path+"."+k, "also set in target; target value kept")
			continue
		}
		n.warn(path+"."+k, "moved into target")
		target[k] = v
	}
	if target != nil {
		if n.opts.Canonical {
			for _, k := range targetKeys {
				if s, ok := target[k].(string); ok {
					target[k] = []any{s}
				}
			}
		}
		a[domain.KeyTarget] = target
	}
	return a
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
