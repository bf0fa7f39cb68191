package identity

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("identity-test-key"))
	testNow    = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)
	v.now = func() time.Time { return testNow }
	return v
}

func headers(v *Verifier, id string, ts time.Time, body []byte) http.Header {
	h := http.Header{}
	h.Set("svix-id", id)
	h.Set("svix-timestamp", strconv.FormatInt(ts.Unix(), 10))
	h.Set("svix-signature", "v1,c29tZXRoaW5nLWVsc2U= "+v.Sign(id, ts, body))
	return h
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier("whsec_not base64!")
	assert.Error(t, err)

	_, err = NewVerifier("")
	assert.Error(t, err)

	// prefix is optional
	_, err = NewVerifier(base64.StdEncoding.EncodeToString([]byte("k")))
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	v := newTestVerifier(t)
	body := []byte(`{"type":"user.deleted","data":{"id":"user_1"}}`)

	assert.NoError(t, v.Verify(headers(v, "msg_1", testNow, body), body))

	t.Run("tampered body", func(t *testing.T) {
		h := headers(v, "msg_1", testNow, body)
		assert.ErrorIs(t, v.Verify(h, []byte(`{"type":"user.deleted","data":{"id":"user_2"}}`)), ErrInvalidSignature)
	})
	t.Run("other id", func(t *testing.T) {
		h := headers(v, "msg_1", testNow, body)
		h.Set("svix-id", "msg_2")
		assert.ErrorIs(t, v.Verify(h, body), ErrInvalidSignature)
	})
	t.Run("missing headers", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(http.Header{}, body), ErrInvalidSignature)
	})
	t.Run("stale", func(t *testing.T) {
		old := testNow.Add(-6 * time.Minute)
		assert.ErrorIs(t, v.Verify(headers(v, "msg_1", old, body), body), ErrStaleTimestamp)
	})
	t.Run("future", func(t *testing.T) {
		ahead := testNow.Add(6 * time.Minute)
		assert.ErrorIs(t, v.Verify(headers(v, "msg_1", ahead, body), body), ErrStaleTimestamp)
	})
}

func TestParseUserEvent(t *testing.T) {
	v := newTestVerifier(t)

	body := []byte(`{"type":"user.created","data":{
		"id":"user_1","first_name":"Ada","last_name":"Lovelace",
		"primary_email_address_id":"em_2",
		"email_addresses":[{"id":"em_1","email_address":"old@example.com"},{"id":"em_2","email_address":"ada@example.com"}]}}`)
	ev, err := v.ParseUserEvent(headers(v, "msg_1", testNow, body), body)
	require.NoError(t, err)
	assert.Equal(t, UserCreated, ev.Type)
	assert.Equal(t, "user_1", ev.User.ID)
	assert.Equal(t, "Ada Lovelace", ev.User.Name)
	assert.Equal(t, "ada@example.com", ev.User.Email)

	body = []byte(`{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`)
	ev, err = v.ParseUserEvent(headers(v, "msg_2", testNow, body), body)
	require.NoError(t, err)
	assert.Equal(t, UserDeleted, ev.Type)
	assert.Equal(t, "user_1", ev.User.ID)

	body = []byte(`{"type":"session.created","data":{"id":"sess_1"}}`)
	ev, err = v.ParseUserEvent(headers(v, "msg_3", testNow, body), body)
	require.NoError(t, err)
	assert.Empty(t, ev.User.ID)

	body = []byte(`{"type":"user.updated","data":{}}`)
	_, err = v.ParseUserEvent(headers(v, "msg_4", testNow, body), body)
	assert.ErrorIs(t, err, ErrMalformedEvent)

	body = []byte(`not json`)
	_, err = v.ParseUserEvent(headers(v, "msg_5", testNow, body), body)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
