package thumbwriter

// Bit-field range predicates and masks for the Thumb-2 displacement fields
// patched during Flush. Grounded on patchlib/blx.go's getBit/setBit/getBits
// bit-twiddling style, generalized to the range checks the encoder needs at
// emission and flush time (patchlib/blx.go only ever needed BLX's fixed
// field widths; this package needs int5/int7/int8/int10/int11 as well).

const (
	int5Mask  = 0x1f
	int8Mask  = 0xff
	int10Mask = 0x3ff
	int11Mask = 0x7ff
)

func fitsInInt8(v int32) bool {
	return v >= -128 && v <= 127
}

func fitsInInt11(v int32) bool {
	return v >= -1024 && v <= 1023
}

func fitsInUint7(v int32) bool {
	return v >= 0 && v <= 127
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
