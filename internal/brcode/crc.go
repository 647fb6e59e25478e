package brcode

import (
	"fmt"
	"strings"

	"github.com/boddenberg/pix-br-code/internal/domain"
)

// crc16CCITTFalse computes CRC-CCITT/FALSE (poly 0x1021, init 0xFFFF, no
// input/output reflection, no final xor) over data — out of scope for a
// third-party library per the spec (no example repo implements this exact
// variant), so implemented directly per the textbook bit-at-a-time
// algorithm.
func crc16CCITTFalse(data []byte) uint16 {
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

// formatCRC renders a CRC-16 value as 4 upper-case zero-padded hex digits.
func formatCRC(crc uint16) string {
	return fmt.Sprintf("%04X", crc)
}

// verifyCRC checks that the trailing 4 hex characters of payload match the
// CRC-CCITT/FALSE of everything preceding them, including the "6304" tag
// and length header of the CRC record itself.
func verifyCRC(payload string) error {
	if len(payload) < 4 {
		return &domain.ErrCRC{}
	}
	body := payload[:len(payload)-4]
	expected := strings.ToUpper(payload[len(payload)-4:])
	if formatCRC(crc16CCITTFalse([]byte(body))) != expected {
		return &domain.ErrCRC{}
	}
	return nil
}
