// Package brcode implements the BR Code TLV decoder and schema validator:
// C1 (CRC-checked tag-length-value parsing) and C2 (field validation and
// static/dynamic classification).
package brcode

import (
	"strconv"

	"github.com/boddenberg/pix-br-code/internal/domain"
)

// Options controls decoding behavior. The zero value is the spec's default
// (strict_validation=false: unknown tags are a hard failure).
type Options struct {
	StrictValidation bool
}

type record struct {
	Tag   string
	Value string
}

// Decode parses a BR Code string into a generic field-name-keyed mapping.
// The CRC is checked first, before any structural parse, per §4.1.
func Decode(payload string, opts Options) (map[string]any, error) {
	if err := verifyCRC(payload); err != nil {
		return nil, err
	}

	recs, err := parseRecords(payload)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(recs))
	for _, rec := range recs {
		if rec.Tag == "63" {
			out["crc"] = rec.Value
			continue
		}
		if spec, ok := nestedTags[rec.Tag]; ok {
			sub, err := decodeNested(rec.Value, spec, opts)
			if err != nil {
				return nil, err
			}
			out[spec.field] = sub
			continue
		}
		if field, ok := scalarTags[rec.Tag]; ok {
			out[field] = rec.Value
			continue
		}
		if opts.StrictValidation {
			continue
		}
		return nil, &domain.ErrUnknownKey{Tag: rec.Tag}
	}
	return out, nil
}

// DecodeTo decodes and validates payload in one step, returning the fully
// classified BRCode — the public decode_to(bytes, options, schema) contract.
func DecodeTo(payload string, opts Options) (*domain.BRCode, error) {
	m, err := Decode(payload, opts)
	if err != nil {
		return nil, err
	}
	return Validate(m)
}

func decodeNested(value string, spec nestedSpec, opts Options) (map[string]string, error) {
	recs, err := parseRecords(value)
	if err != nil {
		return nil, err
	}

	sub := make(map[string]string, len(recs))
	for _, rec := range recs {
		if field, ok := spec.children[rec.Tag]; ok {
			sub[field] = rec.Value
			continue
		}
		if opts.StrictValidation {
			continue
		}
		return nil, &domain.ErrUnknownKey{Tag: rec.Tag}
	}
	return sub, nil
}

// parseRecords splits s into a sequence of TT-LL-VV records, failing fast on
// any grammar violation (§4.1's invalid_tag_length_value / size_not_an_integer).
func parseRecords(s string) ([]record, error) {
	var recs []record
	i := 0
	for i < len(s) {
		if len(s)-i < 4 {
			return nil, &domain.ErrMalformedTLV{Reason: ":invalid_tag_length_value"}
		}
		tag := s[i : i+2]
		lengthStr := s[i+2 : i+4]
		length, err := strconv.Atoi(lengthStr)
		if err != nil || length < 0 {
			return nil, &domain.ErrMalformedTLV{Reason: ":size_not_an_integer"}
		}
		i += 4
		if len(s)-i < length {
			return nil, &domain.ErrMalformedTLV{Reason: ":invalid_tag_length_value"}
		}
		recs = append(recs, record{Tag: tag, Value: s[i : i+length]})
		i += length
	}
	return recs, nil
}
