package codec

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusForCode(t *testing.T) {
	cases := map[string]int{
		CodeNotFound:    404,
		CodeRefused:     403,
		CodeCancelled:   403,
		CodeConnRefused: 403,
		"":                500,
		"SOMETHING_ELSE": 500,
	}
	for code, want := range cases {
		require.Equal(t, want, StatusForCode(code), "code %q", code)
	}
}

func TestClassifyNetErrorDNSNotFound(t *testing.T) {
	require.Equal(t, CodeNotFound, ClassifyNetError(&net.DNSError{IsNotFound: true}))
}

func TestClassifyNetErrorNil(t *testing.T) {
	require.Equal(t, "", ClassifyNetError(nil))
}

func TestNewUpstreamError(t *testing.T) {
	base := errors.New("dial failed")
	err := NewUpstreamError(base, CodeNotFound)
	require.Equal(t, 404, err.StatusCode)
	require.Equal(t, CodeNotFound, err.OriginalCode)
	require.ErrorIs(t, err, base)
}
