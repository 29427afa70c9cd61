package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{name: "processing to cooking", from: OrderStatusProcessing, to: OrderStatusCooking, want: true},
		{name: "processing to cancelled", from: OrderStatusProcessing, to: OrderStatusCancelled, want: true},
		{name: "processing to delivering skips cooking", from: OrderStatusProcessing, to: OrderStatusDelivering, want: false},
		{name: "cooking to delivering", from: OrderStatusCooking, to: OrderStatusDelivering, want: true},
		{name: "cooking to cancelled", from: OrderStatusCooking, to: OrderStatusCancelled, want: false},
		{name: "delivering to completed", from: OrderStatusDelivering, to: OrderStatusCompleted, want: true},
		{name: "delivering back to cooking", from: OrderStatusDelivering, to: OrderStatusCooking, want: false},
		{name: "completed is terminal", from: OrderStatusCompleted, to: OrderStatusDelivering, want: false},
		{name: "cancelled is terminal", from: OrderStatusCancelled, to: OrderStatusCooking, want: false},
		{name: "same status is not a transition", from: OrderStatusCooking, to: OrderStatusCooking, want: false},
		{name: "unknown status", from: OrderStatus("MYSTERY"), to: OrderStatusCooking, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	if got, ok := ParseOrderStatus(" delivering "); !ok || got != OrderStatusDelivering {
		t.Fatalf("expected DELIVERING, got %q ok=%v", got, ok)
	}
	if _, ok := ParseOrderStatus("SHIPPED"); ok {
		t.Fatalf("expected SHIPPED to be rejected")
	}
	if _, ok := ParseOrderStatus(""); ok {
		t.Fatalf("expected empty status to be rejected")
	}
}

func TestRoleOf(t *testing.T) {
	cases := []struct {
		id   string
		want Role
	}{
		{id: "AD0001", want: RoleAdmin},
		{id: "CH0003", want: RoleKitchen},
		{id: "SP0008", want: RoleDelivery},
		{id: "US0214", want: RoleCustomer},
		{id: "", want: RoleUnknown},
		{id: "XX0001", want: RoleUnknown},
		// Containment, not prefix: a marker anywhere in the identifier
		// matches, and AD wins over later markers.
		{id: "XADX", want: RoleAdmin},
		{id: "USCH01", want: RoleKitchen},
		{id: "ADUS01", want: RoleAdmin},
	}

	for _, tc := range cases {
		if got := RoleOf(tc.id); got != tc.want {
			t.Fatalf("RoleOf(%q) = %s, want %s", tc.id, got, tc.want)
		}
	}
}

func TestOrderLineTotal(t *testing.T) {
	line := OrderLine{Quantity: 3, UnitPrice: 4500}
	if got := line.Total(); got != 13500 {
		t.Fatalf("expected total 13500, got %d", got)
	}
}
