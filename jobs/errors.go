package jobs

import "errors"

var (
	// ErrJobNotFound is returned for unknown or expired job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidFilename is returned when an upload name has no usable base name.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrUnsupportedFile is returned when an upload would not be selected for ingestion.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrInvalidTransition is returned when a status change would move a job backwards.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrIngestorRequired is returned when a Manager is built without an ingestor.
	ErrIngestorRequired = errors.New("ingestor is required")

	// ErrCrawlerRequired is returned by IngestWebsite when no crawler is configured.
	ErrCrawlerRequired = errors.New("crawler is required")

	// ErrManagerClosed is returned when submitting to a closed Manager.
	ErrManagerClosed = errors.New("job manager is closed")
)
