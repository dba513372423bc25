package index

// DocumentIndex defines the interface for archive indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, converted string, entries []Entry) error
	DeleteDocument(path string) error
	GetDocument(path string) (*DocumentRow, string, error)
	ListDocuments(limit, offset int) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
