package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.NoError(t, Email(""))
	assert.NoError(t, Email("maria@example.org"))
	assert.NoError(t, Email("maria.lopez+news@example.org"))
	assert.Error(t, Email("not-an-email"))
	assert.Error(t, Email("@example.org"))
}

func TestPhone(t *testing.T) {
	assert.NoError(t, Phone(""))
	assert.NoError(t, Phone("3001234567"))
	assert.NoError(t, Phone("+57 300 123 4567"))
	assert.NoError(t, Phone("(601) 555-0134"))
	assert.Error(t, Phone("123"))
	assert.Error(t, Phone("call me maybe"))
	assert.Error(t, Phone("12345678901234567890"))
}

func TestDocumentID(t *testing.T) {
	assert.NoError(t, DocumentID("123456"))
	assert.NoError(t, DocumentID("1098765432"))
	assert.Error(t, DocumentID("12345"))
	assert.Error(t, DocumentID("1234567890123"))
	assert.Error(t, DocumentID("12A4567"))
}

func TestUsername(t *testing.T) {
	assert.NoError(t, Username("maria"))
	assert.NoError(t, Username("maria.lopez"))
	assert.NoError(t, Username("user_01"))
	assert.Error(t, Username("ab"))
	assert.Error(t, Username("Maria"))
	assert.Error(t, Username("-leading"))
	assert.Error(t, Username("spaces in name"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Maria Lopez", NormalizeName("  Maria   Lopez "))
	assert.Equal(t, "", NormalizeName("   "))
}
