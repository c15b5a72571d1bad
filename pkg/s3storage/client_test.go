package s3storage

import (
	"testing"

	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"products", "products/"},
		{"/products/", "products/"},
		{"catalog/images", "catalog/images/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, folderPrefix(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	client, err := New(config.S3Config{
		Endpoint:  "localhost:9000",
		Region:    "eu-west-2",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-2", client.region)

	_, err = New(config.S3Config{Endpoint: "http://bad endpoint"})
	assert.Error(t, err)
}
