package retrier

// RetrierOpts contains configuration options for retry operations
type RetrierOpts struct {
	Count    uint // Number of retry attempts (0 means no retries)
	Interval uint // Delay between retries in seconds
}

// MultiConnects establishes count connections of type T.
//
// When retrierOpts is set every connection is retried as in Connect,
// otherwise a single attempt is made. It fails fast on the first
// connection that can not be established; connections made before it are
// handed to cleanup so they don't leak.
//
// Example Usage:
//
//	conns, err := MultiConnects(2, dial, &RetrierOpts{Count: 3, Interval: 1}, nil)
func MultiConnects[T any](count uint8, connFunc func() (T, error), retrierOpts *RetrierOpts, cleanup func(T)) ([]T, error) {
	conns := make([]T, count)

	var err error

	for i := range conns {
		if retrierOpts != nil {
			conns[i], err = Connect(uint8(retrierOpts.Count), retrierOpts.Interval, connFunc)
		} else {
			conns[i], err = connFunc()
		}

		if err != nil {
			if cleanup != nil {
				for _, c := range conns[:i] {
					cleanup(c)
				}
			}
			return nil, err
		}
	}

	return conns, nil
}
