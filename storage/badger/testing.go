package badger

// Test helpers shared by this package's tests and by packages that need a
// throwaway storage stack.

// Repositories bundles the three repositories sharing one backend.
type Repositories struct {
	Backend   *Backend
	Documents *DocumentRepository
	Sentences *SentenceRepository
	Chats     *ChatRepository
}

// NewMemoryRepositories opens an in-memory backend and constructs all
// repositories on it. Intended for tests.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	documents, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	sentences, err := NewSentenceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	chats, err := NewChatRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:   backend,
		Documents: documents,
		Sentences: sentences,
		Chats:     chats,
	}, nil
}

// Close closes every repository and the backend.
func (r *Repositories) Close() error {
	r.Documents.Close()
	r.Sentences.Close()
	r.Chats.Close()
	return r.Backend.Close()
}
