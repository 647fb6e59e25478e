package brcode

import "testing"

func TestCRC16CCITTFalse(t *testing.T) {
	// "123456789" is the canonical CRC-CCITT/FALSE test vector: 0x29B1.
	got := crc16CCITTFalse([]byte("123456789"))
	if got != 0x29B1 {
		t.Fatalf("crc16CCITTFalse(123456789) = %04X, want 29B1", got)
	}
}

func TestVerifyCRC(t *testing.T) {
	payload := "00020126580014br.gov.bcb.pix0136123e4567-e12b-12d1-a456-4266554400005204000053039865802BR5913Fulano de Tal6008BRASILIA62070503***63041D3D"
	if err := verifyCRC(payload); err != nil {
		t.Fatalf("expected valid CRC, got %v", err)
	}
}

func TestVerifyCRC_Flipped(t *testing.T) {
	payload := "00020126580014br.gov.bcb.pix0136123e4567-e12b-12d1-a456-4266554400005204000053039865802BR5913Fulano de Tal6008BRASILIA62070503***63041D3C"
	if err := verifyCRC(payload); err == nil {
		t.Fatal("expected invalid CRC after flipping last digit")
	}
}
