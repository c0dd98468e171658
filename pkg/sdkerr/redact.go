package sdkerr

import "strings"

// Redacted replaces secret values in error context
const Redacted = "REDACTED"

var secretKeys = map[string]struct{}{
	"sessionkey": {},
	"apikey":     {},
	"privatekey": {},
	"x-api-key":  {},
}

// Redact returns a copy of ctx with secret values replaced. Nested maps are
// redacted too. The "id" field of an order payload holds the signature and is
// redacted when it sits inside an "orderData" map.
func Redact(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if _, secret := secretKeys[strings.ToLower(k)]; secret {
			out[k] = Redacted
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			nested = Redact(nested)
			if k == "orderData" {
				if _, has := nested["id"]; has {
					nested["id"] = Redacted
				}
			}
			out[k] = nested
			continue
		}
		out[k] = v
	}
	return out
}
