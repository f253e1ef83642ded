package oauthsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_cookieKeys(t *testing.T) {
	hashKey, cryptoKey := cookieKeys("secret")
	assert.Len(t, hashKey, 32)
	assert.Len(t, cryptoKey, 32)
	assert.NotEqual(t, hashKey, cryptoKey)

	again, _ := cookieKeys("secret")
	assert.Equal(t, hashKey, again)

	other, _ := cookieKeys("other")
	assert.NotEqual(t, hashKey, other)
}
