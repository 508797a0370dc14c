package client

import (
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// Classify turns decoded JSON into values. Objects become exactly one
// gdapi.Value each, arrays become new slices of classified elements, and
// scalars are returned unchanged. raw is never modified.
func (c *Client) Classify(raw any) any {
	switch data := raw.(type) {
	case map[string]any:
		return c.classifyObject(data)
	case []any:
		out := make([]any, len(data))
		for i, elem := range data {
			out[i] = c.Classify(elem)
		}

		return out
	default:
		return raw
	}
}

func (c *Client) classifyObject(data map[string]any) gdapi.Value {
	name, factory := c.resolveClass(data)

	// Arrays and objects carrying a discriminator are classified up front.
	// Untyped objects such as links and actions stay raw for the value class.
	fields := make(map[string]any, len(data))
	for key, value := range data {
		switch nested := value.(type) {
		case []any:
			fields[key] = c.Classify(nested)
		case map[string]any:
			if _, typed := nested[c.options.TypeAttr].(string); typed {
				fields[key] = c.classifyObject(nested)

				continue
			}

			fields[key] = value
		default:
			fields[key] = value
		}
	}

	value := factory(c.id, fields)

	if res := gdapi.AsResource(value); res != nil {
		res.SetTypeAttr(c.options.TypeAttr)
	}

	c.options.Metrics.RecordClassified(name)

	return value
}

// resolveClass maps an object to a registered class: classmap entry, then the
// discriminator itself, then the default class, then the built-in resource.
// An unknown discriminator is not an error.
func (c *Client) resolveClass(data map[string]any) (string, gdapi.Factory) {
	name := ""

	if disc, ok := data[c.options.TypeAttr].(string); ok {
		name = disc
		if mapped, ok := c.options.Classmap[disc]; ok {
			name = mapped
		}
	}

	if factory, ok := gdapi.LookupClass(name); ok && name != "" {
		return name, factory
	}

	if factory, ok := gdapi.LookupClass(c.options.DefaultClass); ok {
		return c.options.DefaultClass, factory
	}

	factory, _ := gdapi.LookupClass(gdapi.ClassResource)

	return gdapi.ClassResource, factory
}
