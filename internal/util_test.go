package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReverseDomain(t *testing.T) {
	assert.Equal(t, "com.example.ads", ReverseDomain("ads.example.com"))
	assert.Equal(t, "localhost", ReverseDomain("localhost"))
	assert.Equal(t, "192.168.1.1", ReverseDomain("192.168.1.1"))
	assert.Equal(t, "::1", ReverseDomain("::1"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "ads.example.com", HostOf("https://Ads.Example.COM.:443/banner.js"))
	assert.Equal(t, "::1", HostOf("http://[::1]:8080/"))
	assert.Equal(t, "", HostOf("/relative/path"))
	assert.Equal(t, "", HostOf("https://bad host/%zz"))
}

func TestIsValidDomain(t *testing.T) {
	assert.True(t, IsValidDomain("tracker.example.com"))
	assert.True(t, IsValidDomain("example.com."))
	assert.False(t, IsValidDomain("localhost"))
	assert.False(t, IsValidDomain("-bad.com"))
	assert.False(t, IsValidDomain("bad_label.com"))
	assert.False(t, IsValidDomain(""))
}
