package service

import "github.com/okian/eventdex/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of change-processing goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the change queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the pending-change coalescing set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithReindexConcurrency bounds parallel documents in ReindexAll.
func WithReindexConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reindexConcurrency = n
		}
	}
}

// WithReindexLimit caps the candidate set of ReindexAll.
func WithReindexLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reindexLimit = n
		}
	}
}

// WithReindexSchedule runs ReindexAll on a standard five-field cron
// expression while the service is started. Empty disables it.
func WithReindexSchedule(spec string) Option {
	return func(s *Service) {
		s.schedule = spec
	}
}

// WithBackfill selects the bulk reindex run by Start: BackfillAuto runs it
// only over an empty index, BackfillAlways every time. Other values disable it.
func WithBackfill(mode string) Option {
	return func(s *Service) {
		s.backfill = mode
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
