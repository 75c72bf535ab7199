package controller

// Status is the per-tick compliance verdict. Higher values are worse.
type Status int

const (
	Compliant Status = iota
	Pending
	Violated
)

func (s Status) String() string {
	switch s {
	case Compliant:
		return "COMPLIANT"
	case Pending:
		return "PENDING"
	case Violated:
		return "VIOLATED"
	}
	return "UNKNOWN"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Worst returns the more severe of a and b.
func Worst(a, b Status) Status {
	if a > b {
		return a
	}
	return b
}
