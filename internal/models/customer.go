package models

// Record is one customer row. Values are float64, bool, string or nil.
type Record map[string]any

// Dataset is the parsed upload: records plus the header order they were read in.
type Dataset struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Sample returns a prefix of at most n records.
func (d *Dataset) Sample(n int) []Record {
	if n < 0 || n > len(d.Records) {
		n = len(d.Records)
	}
	return d.Records[:n]
}
