package frontier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	in := &Request{
		URL:    "http://example.com/page",
		Method: "GET",
		Headers: Headers{
			{Key: "Accept", Value: "text/html"},
			{Key: "X-Custom", Value: "one"},
			{Key: "Accept-Language", Value: "en"},
		},
		Cookies: map[string]string{"session": "s1"},
		Meta: map[string]any{
			MetaFingerprint: "abcdef0123456789",
			"native":        "string test",
		},
	}

	data, err := EncodePayload(in)
	require.NoError(t, err)

	out, err := DecodePayload(data)
	require.NoError(t, err)
	require.Equal(t, in.URL, out.URL)
	require.Equal(t, in.Method, out.Method)
	require.Equal(t, in.Headers, out.Headers, "header order must survive the round trip")
	require.Equal(t, in.Cookies, out.Cookies)
	require.Equal(t, "abcdef0123456789", out.Fingerprint())
	require.Equal(t, "string test", out.Meta["native"])
}

func TestDecodePayloadRejectsUnknownVersion(t *testing.T) {
	_, err := DecodePayload([]byte(`{"v":2,"url":"http://example.com","request":{}}`))
	require.ErrorContains(t, err, "unsupported payload version")
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, err := DecodePayload([]byte(`{not json`))
	require.Error(t, err)
}

func TestDecodePayloadAlwaysHasMeta(t *testing.T) {
	out, err := DecodePayload([]byte(`{"v":1,"url":"http://example.com","request":{"method":"GET"}}`))
	require.NoError(t, err)
	require.NotNil(t, out.Meta)
}

func TestHeadersAccessors(t *testing.T) {
	h := Headers{}
	require.Equal(t, "", h.Get("missing"))
	h.Set("A", "1")
	h.Set("B", "2")
	h.Set("A", "3")
	require.Equal(t, "3", h.Get("A"))
	require.Equal(t, Headers{{Key: "A", Value: "3"}, {Key: "B", Value: "2"}}, h)
}
