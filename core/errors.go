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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNegativeChunkNumber indicates a chunk sequence index below zero.
	ErrNegativeChunkNumber = errors.New("chunk number cannot be negative")

	// ErrEmptySource indicates a missing document source.
	ErrEmptySource = errors.New("source cannot be empty")

	// ErrMissingDocumentID indicates a chunk or document without an ID.
	ErrMissingDocumentID = errors.New("document id is required")

	// ErrInvalidID indicates an ID string that cannot be parsed.
	ErrInvalidID = errors.New("invalid id")
)
