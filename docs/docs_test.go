package docs

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPI_IsValid(t *testing.T) {
	doc, err := openapi3.NewLoader().LoadFromData(OpenAPI)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{"/get-credits", "/purchase-credits", "/generate-parameters"} {
		item := doc.Paths.Find(path)
		require.NotNil(t, item, path)
		require.NotNil(t, item.Post, path)
		require.NotNil(t, item.Post.Security, path)
		assert.Len(t, *item.Post.Security, 1, path)
	}
	assert.Nil(t, doc.Paths.Find("/webhook").Post.Security)
}
