package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGCSURL(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		obj    string
		ok     bool
	}{
		{"gs://icons/shops/s1/p1.png", "icons", "shops/s1/p1.png", true},
		{"https://storage.googleapis.com/icons/a%20b.png", "icons", "a b.png", true},
		{"https://storage.cloud.google.com/icons/x.png", "icons", "x.png", true},
		{"https://cdn.example.com/icons/x.png", "", "", false},
		{"gs://icons", "", "", false},
	}
	for _, tt := range tests {
		b, o, ok := ParseGCSURL(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.bucket, b, tt.in)
		assert.Equal(t, tt.obj, o, tt.in)
	}
}

func TestGCSPublicURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/icons/p.png", GCSPublicURL("", "/p.png", "icons"))
}
