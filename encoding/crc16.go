package encoding

// CRC16 computes the modbus CRC-16 (polynomial 0xA001, initial register
// 0xFFFF) over data. The result protects frame content against corruption on
// the wire; callers decide how the two bytes are serialized.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc = crc >> 1
			}
		}
	}
	return crc
}
