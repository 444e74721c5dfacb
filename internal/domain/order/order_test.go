package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{in: "pending", want: StatusPending, ok: true},
		{in: "shipped", want: StatusShipped, ok: true},
		{in: "delivered", want: StatusDelivered, ok: true},
		{in: "SHIPPED", want: StatusShipped, ok: true},
		{in: "  Delivered\t", want: StatusDelivered, ok: true},
		{in: "", ok: false},
		{in: "cancelled", ok: false},
		{in: "ship ped", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if !tt.ok {
				var target *InvalidStatusError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, tt.in, target.Value)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	for _, from := range Statuses {
		for _, to := range Statuses {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition("cancelled", StatusPending))
	assert.False(t, CanTransition(StatusPending, "lost"))
}
