// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for docingest.
//
// This package defines the repository interface that decouples storage
// implementation from the ingestion pipeline. Two backends implement it:
//
//   - storage/badger: embedded BadgerDB, the default
//   - storage/postgres: PostgreSQL with the pgvector extension
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.ChunkRepository interface:
//
//	repo, err := badger.NewRepository("/path/to/db")  // returns storage.ChunkRepository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Usage
//
//	repo, err := badger.NewRepository("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe. The persister inserts
// the chunks of one document from many goroutines at once.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
