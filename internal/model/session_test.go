package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_HasRefreshToken(t *testing.T) {
	rt := "current"
	empty := ""

	live := Session{RefreshToken: &rt}
	assert.True(t, live.Active())
	assert.True(t, live.HasRefreshToken("current"))
	assert.False(t, live.HasRefreshToken("current2"))
	assert.False(t, live.HasRefreshToken(""))

	for _, s := range []Session{{}, {RefreshToken: &empty}} {
		assert.False(t, s.Active())
		assert.False(t, s.HasRefreshToken(""))
	}
}
