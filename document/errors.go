package document

// UsageError reports API misuse, such as mixing the item and field
// argument forms of Array.Add in one call. It is distinct from a
// validation failure: the call shape itself is wrong.
type UsageError struct {
	Msg string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return "usage error: " + e.Msg
}
