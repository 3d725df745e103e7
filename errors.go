package inflatelib

// A DataError reports a structural inconsistency in the compressed input:
// a reserved block type, a stored-block length that fails its one's
// complement check, an over-subscribed or unassigned Huffman code, a repeat
// code with nothing to repeat, or a distance reaching past the written
// history. The stream is left in an unspecified state; Reset it before
// decoding again.
type DataError struct {
	msg string
}

func (e *DataError) Error() string {
	return "inflatelib: invalid data: " + e.msg
}

// An ArgError reports a method called in an invalid sequence, such as
// decoding before Init or mixing Inflate and Inflate64 on one stream
// without an intervening Reset. The stream is left unchanged.
type ArgError struct {
	msg string
}

func (e *ArgError) Error() string {
	return "inflatelib: invalid argument: " + e.msg
}
