// Package ingestion turns raw document text into enriched, persisted chunks.
//
// A Pipeline runs four stages per document:
//   - Chunking with the chunker package
//   - Naming the document from its first four chunks (Namer)
//   - Enriching every chunk with a title, summary and embedding (Enricher)
//   - Writing the document row and its chunks (Persister)
//
// Enrichment and persistence fan out on bounded ants worker pools. Model
// failures degrade to placeholders or zero vectors and insert failures are
// counted, so one bad chunk never aborts a document.
package ingestion
