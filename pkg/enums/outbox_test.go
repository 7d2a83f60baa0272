package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutboxEventType(t *testing.T) {
	for _, raw := range []string{"welcome_email_requested", "account_change_notice_requested", "product_contributed"} {
		got, err := ParseOutboxEventType(raw)
		require.NoError(t, err, raw)
		assert.True(t, got.IsValid())
	}

	_, err := ParseOutboxEventType("order_created")
	assert.EqualError(t, err, `unknown event type "order_created"`)
}

func TestParseOutboxAggregateType(t *testing.T) {
	got, err := ParseOutboxAggregateType("product")
	require.NoError(t, err)
	assert.Equal(t, AggregateProduct, got)

	assert.False(t, OutboxAggregateType("store").IsValid())
	assert.False(t, OutboxAggregateType("").IsValid())
}
