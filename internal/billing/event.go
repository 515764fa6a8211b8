// Package billing handles the inbound surface of the external payment
// processor: webhook signature verification, event parsing and the
// subscription detail lookup client.
package billing

import "encoding/json"

// Event types delivered by the processor. Anything else is parsed but
// treated as a no-op by the synchronizer so processor schema growth does
// not break us.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventCancelRequested   = "subscription.cancel_requested"
	EventReactivated       = "subscription.reactivated"
)

// Interval units for checkout events.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// Event is a subscription lifecycle notification. EventID is the processor's
// idempotency token; Subject is the billing email that resolves the account.
type Event struct {
	EventID         string `json:"id"`
	Type            string `json:"type"`
	Subject         string `json:"subject"`
	IntervalUnit    string `json:"interval_unit,omitempty"`
	SubscriptionRef string `json:"subscription_ref,omitempty"`
	PlanAmountCents int64  `json:"plan_amount,omitempty"`
	PlanName        string `json:"plan_name,omitempty"`
}

// ParseEvent decodes a verified webhook payload.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
