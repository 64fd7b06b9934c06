package repository

// Option applies a configuration option to the QueueStore.
type Option func(*QueueStore)

// WithCapacity bounds the number of waiting participants. Zero means unbounded.
func WithCapacity(capacity int) Option {
	return func(s *QueueStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
