package brcode

import "fmt"

// Encode re-serializes a decoded mapping (as produced by Decode) back into
// a BR Code string, in the canonical tag order, recomputing the trailing
// CRC. It exists to exercise the idempotence invariant
// decode(encode(decode(b))) == decode(b) — Decode and Encode round-trip any
// payload this package itself produced.
func Encode(m map[string]any) string {
	body := ""
	for _, tag := range tagOrder {
		switch tag {
		case "26", "62", "80":
			if raw, ok := m[nestedTags[tag].field]; ok {
				if sub, ok := raw.(map[string]string); ok {
					body += encodeNested(tag, sub)
				}
			}
		default:
			field := scalarTags[tag]
			if raw, ok := m[field]; ok {
				if s, ok := raw.(string); ok && s != "" {
					body += encodeRecord(tag, s)
				}
			}
		}
	}
	crc := formatCRC(crc16CCITTFalse([]byte(body + "6304")))
	return body + "6304" + crc
}

func encodeNested(tag string, sub map[string]string) string {
	spec := nestedTags[tag]
	childOrder := childTagOrder(spec)
	inner := ""
	for _, childTag := range childOrder {
		field := spec.children[childTag]
		if v, ok := sub[field]; ok && v != "" {
			inner += encodeRecord(childTag, v)
		}
	}
	if inner == "" {
		return ""
	}
	return encodeRecord(tag, inner)
}

// childTagOrder returns a spec's child tags sorted ascending, so nested
// records are emitted deterministically regardless of map iteration order.
func childTagOrder(spec nestedSpec) []string {
	tags := make([]string, 0, len(spec.children))
	for t := range spec.children {
		tags = append(tags, t)
	}
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j-1] > tags[j]; j-- {
			tags[j-1], tags[j] = tags[j], tags[j-1]
		}
	}
	return tags
}

func encodeRecord(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}
