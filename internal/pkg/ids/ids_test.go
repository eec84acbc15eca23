package ids

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	id := New[BookingID]()
	parsed, err := Parse[BookingID](id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.False(t, parsed.IsZero())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse[WalletID]("not-a-uuid")
	assert.Error(t, err)
}

func TestScanAndValue(t *testing.T) {
	id := New[PaymentID]()
	v, err := id.Value()
	require.NoError(t, err)

	var scanned PaymentID
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, id, scanned)

	var fromBytes PaymentID
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromBytes)
}

func TestJSONUsesCanonicalString(t *testing.T) {
	type envelope struct {
		ID VoucherID `json:"id"`
	}
	in := envelope{ID: New[VoucherID]()}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+in.ID.String()+`"}`, string(raw))

	var out envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.ID, out.ID)
}

func TestZeroValue(t *testing.T) {
	var id RoomTypeID
	assert.True(t, id.IsZero())
}
