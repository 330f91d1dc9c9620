package sqlite_store

type Config struct {
	// Path is the SQLite database file; ":memory:" keeps the ledger
	// in-process only.
	Path string `conf:"PATH" default:"./logo_similarity.db"`
}
