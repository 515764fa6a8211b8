package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func TestVerifySignatureRoundTrip(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"checkout.completed"}`)
	header := SignatureHeader(payload, testSecret, now)

	assert.NoError(t, VerifySignature(payload, header, testSecret, now))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader(payload, "whsec_other", now)

	assert.ErrorIs(t, VerifySignature(payload, header, testSecret, now), ErrInvalidSignature)
}

func TestVerifySignatureTamperedPayload(t *testing.T) {
	now := time.Now()
	header := SignatureHeader([]byte(`{"id":"evt_1"}`), testSecret, now)

	assert.ErrorIs(t, VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, now), ErrInvalidSignature)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "t=abc,v1=zz", "v1=deadbeef", "t=123"} {
		assert.Error(t, VerifySignature([]byte("{}"), header, testSecret, time.Now()), "header %q", header)
	}
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	header := SignatureHeader(payload, testSecret, now.Add(-10*time.Minute))

	assert.ErrorIs(t, VerifySignature(payload, header, testSecret, now), ErrStaleTimestamp)
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_9","type":"checkout.completed","subject":"a@b.com","interval_unit":"year","subscription_ref":"sub_1","plan_amount":500,"plan_name":"Plus"}`)

	evt, err := ParseEvent(payload)
	require.NoError(t, err)

	assert.Equal(t, "evt_9", evt.EventID)
	assert.Equal(t, EventCheckoutCompleted, evt.Type)
	assert.Equal(t, "a@b.com", evt.Subject)
	assert.Equal(t, IntervalYear, evt.IntervalUnit)
	assert.Equal(t, "sub_1", evt.SubscriptionRef)
	assert.Equal(t, int64(500), evt.PlanAmountCents)
	assert.Equal(t, "Plus", evt.PlanName)
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{"id":`))
	assert.Error(t, err)
}
