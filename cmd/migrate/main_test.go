package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	a := checksum([]byte("CREATE TABLE a ();"))
	b := checksum([]byte("CREATE TABLE b ();"))

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, checksum([]byte("CREATE TABLE a ();")))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", checksum(nil))
}
