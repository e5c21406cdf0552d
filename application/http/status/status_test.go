package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromCode(t *testing.T) {
	s, ok := FromCode(404)
	assert.True(t, ok)
	assert.Equal(t, NotFound, s)

	s, ok = FromCode(299)
	assert.False(t, ok)
	assert.Equal(t, Status{Code: 299}, s)

	assert.Equal(t, "Method Not Allowed", Text(405))
	assert.Equal(t, "", Text(999))
}

func TestClassOf(t *testing.T) {
	testcases := []struct {
		code     int
		expected Class
	}{
		{99, ClassUnknown},
		{100, ClassInformational},
		{204, ClassSuccessful},
		{308, ClassRedirection},
		{418, ClassClientError},
		{503, ClassServerError},
		{600, ClassUnknown},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.expected, ClassOf(tc.code), tc.code)
	}
}

func TestError(t *testing.T) {
	assert.EqualError(t, NewError(404, ""), "404 Not Found (client error)")
	assert.EqualError(t, NewError(500, "Oops"), "500 Oops (server error)")
	assert.EqualError(t, NewError(999, ""), "999  (unknown)")
}
