package stream

// OpError records a failed controller operation. Err is either a pkg
// sentinel detected by the controller or the error returned by the driver,
// so errors.Is classifies it either way.
type OpError struct {
	Op     string // operation name, e.g. "configure_video"
	Stream string // sub-stream name, empty for stream-wide operations
	Err    error
}

func (e *OpError) Error() string {
	if e.Stream == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Stream + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}
