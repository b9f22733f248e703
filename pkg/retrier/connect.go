package retrier

import "time"

// Connect attempts to establish a connection with retry logic.
//
// The connector is called until it succeeds or retry+1 attempts were made,
// sleeping sleep seconds between failed attempts. It's useful for waiting
// on brokers and databases that start together with the service.
//
// Example Usage:
//
//	conn, err := retrier.Connect(3, 2, func() (*amqp.Connection, error) {
//	    return amqp.Dial(url)
//	})
func Connect[T any](retry uint8, sleep uint, connector func() (T, error)) (T, error) {
	var (
		out T
		err error
	)

	for attempt := 0; attempt <= int(retry); attempt++ {
		out, err = connector()
		if err == nil {
			return out, nil
		}

		// no wait after the final attempt
		if attempt < int(retry) {
			time.Sleep(time.Duration(sleep) * time.Second)
		}
	}

	return out, err
}

// Do runs fn up to count times (at least once) until it returns nil,
// sleeping sleep seconds between attempts. The last error is returned.
func Do(count uint8, sleep uint, fn func() error) error {
	retry := count
	if retry > 0 {
		retry--
	}

	_, err := Connect(retry, sleep, func() (struct{}, error) {
		return struct{}{}, fn()
	})

	return err
}
