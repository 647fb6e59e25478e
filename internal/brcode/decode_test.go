package brcode_test

import (
	"fmt"
	"testing"

	"github.com/boddenberg/pix-br-code/internal/brcode"
	"github.com/boddenberg/pix-br-code/internal/domain"
)

const s1Static = "00020126580014br.gov.bcb.pix0136123e4567-e12b-12d1-a456-4266554400005204000053039865802BR5913Fulano de Tal6008BRASILIA62070503***63041D3D"

func TestDecodeTo_S1_StaticCode(t *testing.T) {
	code, err := brcode.DecodeTo(s1Static, brcode.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code.Type != domain.BRCodeStatic {
		t.Errorf("type = %q, want static", code.Type)
	}
	if code.MerchantAccountInformation.Chave != "123e4567-e12b-12d1-a456-426655440000" {
		t.Errorf("chave = %q", code.MerchantAccountInformation.Chave)
	}
	if code.CRC != "1D3D" {
		t.Errorf("crc = %q, want 1D3D", code.CRC)
	}
	if code.AdditionalDataFieldTemplate.ReferenceLabel != "***" {
		t.Errorf("reference_label = %q, want ***", code.AdditionalDataFieldTemplate.ReferenceLabel)
	}
}

func TestDecodeTo_S3_CRCFailure(t *testing.T) {
	flipped := s1Static[:len(s1Static)-1] + "C"
	_, err := brcode.DecodeTo(flipped, brcode.Options{})
	if _, ok := err.(*domain.ErrCRC); !ok {
		t.Fatalf("expected *domain.ErrCRC, got %v (%T)", err, err)
	}
}

// testEncodeRecord and testCRC16CCITTFalse duplicate just enough of the
// package's own TLV and CRC machinery to build fixtures from outside the
// package — brcode.Encode can't be used here since it only serializes tags
// already present in its own tag tables, and tag "99" deliberately isn't.
func testEncodeRecord(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func testCRC16CCITTFalse(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func testFormatCRC(crc uint16) string {
	return fmt.Sprintf("%04X", crc)
}

// buildPayloadWithExtraTag injects a scalar tag "99" carrying "X" right
// before the CRC trailer, recomputing the CRC so the base string stays
// self-consistent for both strict and non-strict decoding.
func buildPayloadWithExtraTag(t *testing.T) string {
	t.Helper()
	body := s1Static[:len(s1Static)-8] // strip "6304" + 4-hex CRC
	body += testEncodeRecord("99", "X")
	crc := testFormatCRC(testCRC16CCITTFalse([]byte(body + "6304")))
	return body + "6304" + crc
}

func TestDecode_S4_UnknownTag_NonStrict(t *testing.T) {
	payload := buildPayloadWithExtraTag(t)
	_, err := brcode.Decode(payload, brcode.Options{StrictValidation: false})
	unk, ok := err.(*domain.ErrUnknownKey)
	if !ok {
		t.Fatalf("expected *domain.ErrUnknownKey, got %v (%T)", err, err)
	}
	if unk.Tag != "99" {
		t.Errorf("tag = %q, want 99", unk.Tag)
	}
}

func TestDecode_S4_UnknownTag_Strict(t *testing.T) {
	payload := buildPayloadWithExtraTag(t)
	m, err := brcode.Decode(payload, brcode.Options{StrictValidation: true})
	if err != nil {
		t.Fatalf("unexpected error in strict mode: %v", err)
	}
	if _, present := m["99"]; present {
		t.Error("unknown tag should have been dropped, not carried through")
	}
}

func TestDecodeTo_S2_DynamicImmediate(t *testing.T) {
	payload := brcode.Encode(map[string]any{
		"payload_format_indicator": "01",
		"merchant_account_information": map[string]string{
			"gui": "br.gov.bcb.pix",
			"url": "exemplodeurl.com.br/pix/v2/11111111-1111-1111-1111-111111111111",
		},
		"merchant_category_code":        "0000",
		"transaction_currency":          "986",
		"transaction_amount":            "0.01",
		"country_code":                  "BR",
		"merchant_name":                 "Fulano de Tal",
		"merchant_city":                 "BRASILIA",
		"additional_data_field_template": map[string]string{"reference_label": "***"},
	})

	code, err := brcode.DecodeTo(payload, brcode.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code.Type != domain.BRCodeDynamicImmediate {
		t.Errorf("type = %q, want dynamic_payment_immediate", code.Type)
	}
	if code.TransactionAmount != "0.01" {
		t.Errorf("transaction_amount = %q, want 0.01", code.TransactionAmount)
	}
}

func TestDecodeTo_DynamicWithDueDate(t *testing.T) {
	payload := brcode.Encode(map[string]any{
		"payload_format_indicator": "01",
		"merchant_account_information": map[string]string{
			"gui": "br.gov.bcb.pix",
			"url": "psp.example.com.br/v2/cobv",
		},
		"transaction_currency":          "986",
		"country_code":                  "BR",
		"merchant_name":                 "Fulano de Tal",
		"merchant_city":                 "BRASILIA",
		"additional_data_field_template": map[string]string{"reference_label": "***"},
	})

	code, err := brcode.DecodeTo(payload, brcode.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code.Type != domain.BRCodeDynamicWithDueDate {
		t.Errorf("type = %q, want dynamic_payment_with_due_date", code.Type)
	}
}

func TestDecodeEncode_Idempotent(t *testing.T) {
	m1, err := brcode.Decode(s1Static, brcode.Options{})
	if err != nil {
		t.Fatalf("decode 1: %v", err)
	}
	reencoded := brcode.Encode(m1)
	m2, err := brcode.Decode(reencoded, brcode.Options{})
	if err != nil {
		t.Fatalf("decode 2: %v", err)
	}
	if len(m1) != len(m2) {
		t.Fatalf("field count mismatch: %d vs %d", len(m1), len(m2))
	}
	for k, v := range m1 {
		if !equalNested(v, m2[k]) {
			t.Errorf("field %q mismatch: %v vs %v", k, v, m2[k])
		}
	}
}

func equalNested(a, b any) bool {
	am, aok := a.(map[string]string)
	bm, bok := b.(map[string]string)
	if aok != bok {
		return false
	}
	if !aok {
		return a == b
	}
	if len(am) != len(bm) {
		return false
	}
	for k, v := range am {
		if bm[k] != v {
			return false
		}
	}
	return true
}
