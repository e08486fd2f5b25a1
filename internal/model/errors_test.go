package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfMapsSentinels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ErrCodeNone, CodeOf(nil))
	assert.Equal(t, ErrCodeCatalogTimeout, CodeOf(ErrCatalogTimeout))
	assert.Equal(t, ErrCodeCancelled, CodeOf(ErrCancelled))
	assert.Equal(t, ErrCodeDocumentNotOpen, CodeOf(ErrDocumentNotOpen))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("unrecognized")))
}

func TestCodeOfUnwrapsWrappedSentinel(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("document: %s: %w", "file:///a.sql", ErrDocumentNotOpen)
	assert.Equal(t, ErrCodeDocumentNotOpen, CodeOf(wrapped))
}

func TestErrorCodeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "internal", ErrCodeInternal.String())
	assert.Equal(t, "catalog_timeout", ErrCodeCatalogTimeout.String())
	assert.Equal(t, "cancelled", ErrCodeCancelled.String())
	assert.Equal(t, "document_not_open", ErrCodeDocumentNotOpen.String())
	assert.Equal(t, "none", ErrCodeNone.String())
}
