// Package server exposes ingestion and document listing over HTTP with gin.
package server
