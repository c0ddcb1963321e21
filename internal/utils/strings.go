package utils

// PrefixSliceOfStrings qualifies column names with a table alias for
// joined queries.
func PrefixSliceOfStrings(prefix string, input []string) []string {
	out := make([]string, len(input))
	for i, v := range input {
		out[i] = prefix + "." + v
	}
	return out
}
