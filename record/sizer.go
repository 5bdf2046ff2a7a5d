package record

/*
Size estimators compute the approximate in-memory footprint of a buffered
record. The bounded queue charges its memory budget with these estimates, so
they should err on the high side: an overestimate costs throughput, an
underestimate costs memory safety.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	recordOverhead = 96
	fieldOverhead  = 48
)

// Estimator estimates the in-memory size of a record in bytes.
type Estimator struct{}

// NewEstimator returns an estimator for record sizes.
func NewEstimator() Estimator {
	return Estimator{}
}

// Estimate returns the approximate footprint of r in bytes.
func (Estimator) Estimate(r Record) int64 {
	size := int64(recordOverhead + len(r.Key.Record) + len(r.Key.Partition))
	for name, value := range r.Fields {
		size += fieldOverhead + int64(len(name))
		switch v := value.(type) {
		case string:
			size += int64(len(v))
		case []byte:
			size += int64(len(v))
		}
	}
	return size
}

// FixedEstimator charges a constant size for every record. It is useful when
// record shapes are uniform and known up front, and in tests that need exact
// accounting.
type FixedEstimator struct {
	size int64
}

// NewFixedEstimator returns an estimator that charges size bytes per record.
func NewFixedEstimator(size int64) FixedEstimator {
	return FixedEstimator{size: size}
}

// Estimate returns the fixed size.
func (f FixedEstimator) Estimate(Record) int64 {
	return f.size
}
