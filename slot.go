package chronicle

// slotLocation returns the index file number and within-file byte
// offset for the global intra-day sequence number i:
// divmod(i*8, IndexFileSize).
func slotLocation(i int64) (fileNum int, byteOffset int64) {
	total := i * IndexSlotSize
	fileNum = int(total / IndexFileSize)
	byteOffset = total % IndexFileSize
	return fileNum, byteOffset
}
