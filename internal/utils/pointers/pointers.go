package pointers

// Helper function to create pointers for uint64
func Uint64Ptr(i uint64) *uint64 {
	return &i
}

// Helper function to create pointers for bools
func BoolPtr(b bool) *bool {
	return &b
}
