// Package jobs coordinates ingestion runs.
//
// A Manager owns the process-wide pipeline lock, so at most one crawl or
// directory ingestion executes at a time, and an in-memory job table for
// asynchronous file uploads. Job records are not durable; they are lost on
// restart and the oldest are dropped once MaxRetainedJobs is exceeded.
package jobs
