// Package postgres implements storage.ChunkRepository on PostgreSQL with the
// pgvector extension.
//
// Documents live in the documents table and chunks in website_pages, one row
// per (document_id, chunk_number). The schema is applied when the store opens.
// Metadata filters use jsonb containment, so they can use the GIN index.
package postgres
