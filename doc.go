// Package docingest turns crawled websites and uploaded documents into
// embedded, metadata-tagged chunks for retrieval.
//
// NewEngine wires the pieces from a config.Config: a chunk store (badger or
// Postgres with pgvector), an OpenAI-compatible model provider, the ingestion
// pipeline, the site crawler and the job manager that serializes ingestion
// runs.
package docingest
