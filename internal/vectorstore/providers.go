package vectorstore

import (
	"fmt"
	"os"
	"strconv"
)

// NewFromEnv creates a VectorStore based on env configuration.
// FOLIO_VECTOR_PROVIDER: "memory" (default) | "sqlite" | "pgvector".
// FOLIO_SQLITE_PATH and FOLIO_PGVECTOR_DSN configure the backends.
func NewFromEnv() (VectorStore, error) {
	switch os.Getenv("FOLIO_VECTOR_PROVIDER") {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		path := os.Getenv("FOLIO_SQLITE_PATH")
		if path == "" {
			path = "folio.db"
		}
		return OpenSQLite(path)
	case "pgvector":
		dim := 1536
		if v := os.Getenv("FOLIO_EMBEDDING_DIM"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				dim = n
			}
		}
		return OpenPgVector(os.Getenv("FOLIO_PGVECTOR_DSN"), dim)
	default:
		return nil, fmt.Errorf("unknown vector provider %q", os.Getenv("FOLIO_VECTOR_PROVIDER"))
	}
}
