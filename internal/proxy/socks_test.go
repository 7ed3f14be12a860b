package proxy

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectClient(t *testing.T) {
	c, err := NewClient("", 3*time.Second)
	require.NoError(t, err)
	assert.Nil(t, c.Transport)
	assert.Equal(t, 3*time.Second, c.Timeout)
}

func TestSocksClientRoutesThroughProxy(t *testing.T) {
	c, err := NewClient("127.0.0.1:1080", 5*time.Second)
	require.NoError(t, err)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.DialContext)
	assert.Equal(t, 5*time.Second, c.Timeout)
}
