package brcode

// nestedSpec describes a BR Code tag whose value is itself a TLV sequence.
type nestedSpec struct {
	field    string
	children map[string]string // child tag -> field name
}

// scalarTags maps a top-level BR Code tag to the field name it carries.
// "63" (crc) is handled specially by Decode since it is the integrity
// trailer, not a semantic field, but it is listed here for completeness of
// the tag inventory (§6 of the spec).
var scalarTags = map[string]string{
	"00": "payload_format_indicator",
	"01": "point_of_initiation_method",
	"52": "merchant_category_code",
	"53": "transaction_currency",
	"54": "transaction_amount",
	"58": "country_code",
	"59": "merchant_name",
	"60": "merchant_city",
	"61": "postal_code",
	"63": "crc",
}

// nestedTags maps a top-level BR Code tag that introduces a nested TLV
// sequence to its field name and child-tag mapping.
//
// The distilled spec's tag table (§6) lists only {00,01,25} as children of
// tag 26, but §3's data model also names an optional info_adicional field
// under merchant_account_information for the static case. Real-world BR
// Code payloads carry that under child tag "02" ("Informação Adicional" in
// the central bank's own EMV-QRCPS profile) — this is the Open Question the
// spec leaves implicit; resolved here by adding "02" to tag 26's children.
var nestedTags = map[string]nestedSpec{
	"26": {
		field: "merchant_account_information",
		children: map[string]string{
			"00": "gui",
			"01": "chave",
			"02": "info_adicional",
			"25": "url",
		},
	},
	"62": {
		field: "additional_data_field_template",
		children: map[string]string{
			"05": "reference_label",
		},
	},
	"80": {
		field: "unreserved_templates",
		children: map[string]string{
			"00": "gui",
		},
	},
}

// scalarFieldToTag inverts scalarTags, mapping a field name back to its tag.
var scalarFieldToTag = invert(scalarTags)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// tagOrder is the canonical serialization order Encode emits records in.
// It matches the order the central bank's EMV-QRCPS profile documents and
// is what makes decode(encode(decode(b))) idempotent for any b this package
// produced itself.
var tagOrder = []string{"00", "01", "26", "52", "53", "54", "58", "59", "60", "61", "62", "80"}
