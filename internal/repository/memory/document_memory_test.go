package memory

import (
	"testing"

	"docvault/internal/repository"
	"docvault/internal/repository/repotest"
)

func TestDocumentMemory_Conformance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.DocumentRepository {
		return NewDocumentMemory()
	})
}
