package frame

// UniformStride returns the smallest multiple of alignment that fits a
// record of recordSize bytes. Alignment is a power of two per the Vulkan
// spec; a reported alignment of zero leaves the record size unchanged.
func UniformStride(recordSize, alignment uint64) uint64 {
	if alignment == 0 {
		return recordSize
	}
	return (recordSize + alignment - 1) &^ (alignment - 1)
}
