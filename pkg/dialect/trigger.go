package dialect

import (
	"fmt"

	"github.com/aretw0/cafe/pkg/domain"
)

// trigger normalises one trigger entry so its platform lives under "platform".
func (n *normalizer) trigger(path string, t map[string]any) map[string]any {
	out := domain.CloneMap(t)
	platform, hasPlatform := out["platform"].(string)
	trigger, hasTrigger := out["trigger"].(string)

	switch {
	case hasPlatform && hasTrigger:
		if platform != trigger {
			n.warn(path, "trigger %q and platform %q disagree; using %q", trigger, platform, trigger)
		} else {
			n.warn(path, "redundant platform removed")
		}
		delete(out, "trigger")
		out[domain.KeyPlatform] = trigger
	case hasTrigger:
		delete(out, "trigger")
		out[domain.KeyPlatform] = trigger
	case hasPlatform:
		n.warn(path, "platform is the legacy spelling of trigger")
	default:
		if _, ok := out["domain"]; ok {
			if _, ok := out[domain.KeyDeviceID]; ok {
				n.warn(path, "trigger without platform inferred as device trigger")
				out[domain.KeyPlatform] = "device"
				break
			}
		}
		n.warn(path, "trigger has no platform")
	}
	return out
}

// triggerList normalises wait_for_trigger values, which may be a single mapping.
func (n *normalizer) triggerList(path string, v any) []any {
	items := asList(v)
	out := make([]any, 0, len(items))
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		m, ok := item.(map[string]any)
		if !ok {
			n.warn(p, "trigger must be a mapping, got %T; skipped", item)
			continue
		}
		out = append(out, n.trigger(p, m))
	}
	return out
}
