package domain

import "strings"

// OrderStatus represents an order's position in the fulfilment workflow.
type OrderStatus string

const (
	// OrderStatusProcessing is the initial status of every order.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusCooking indicates a chef has claimed the order.
	OrderStatusCooking OrderStatus = "COOKING"
	// OrderStatusDelivering indicates a shipper has taken the order out.
	OrderStatusDelivering OrderStatus = "DELIVERING"
	// OrderStatusCompleted indicates the order was delivered.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled indicates the order was cancelled before cooking.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a raw status string against the known set.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case OrderStatusProcessing:
		return OrderStatusProcessing, true
	case OrderStatusCooking:
		return OrderStatusCooking, true
	case OrderStatusDelivering:
		return OrderStatusDelivering, true
	case OrderStatusCompleted:
		return OrderStatusCompleted, true
	case OrderStatusCancelled:
		return OrderStatusCancelled, true
	default:
		return "", false
	}
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusProcessing: {OrderStatusCooking, OrderStatusCancelled},
	OrderStatusCooking:    {OrderStatusDelivering},
	OrderStatusDelivering: {OrderStatusCompleted},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to another.
// COMPLETED and CANCELLED are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Role classifies an account by what it may do in the order workflow.
type Role string

const (
	// RoleAdmin may manage the platform and cancel any order.
	RoleAdmin Role = "ADMIN"
	// RoleKitchen may claim orders for cooking.
	RoleKitchen Role = "KITCHEN"
	// RoleDelivery may take orders out and complete them.
	RoleDelivery Role = "DELIVERY"
	// RoleCustomer may shop and cancel their own orders.
	RoleCustomer Role = "CUSTOMER"
	// RoleUnknown is returned for identifiers matching no role marker.
	RoleUnknown Role = "UNKNOWN"
)

// RoleOf derives the role from an account identifier. Matching is substring
// containment rather than strict prefix, checked in the order AD, CH, SP, US;
// legacy identifiers depend on this looseness, so it must not be tightened.
func RoleOf(accountID string) Role {
	switch {
	case strings.Contains(accountID, "AD"):
		return RoleAdmin
	case strings.Contains(accountID, "CH"):
		return RoleKitchen
	case strings.Contains(accountID, "SP"):
		return RoleDelivery
	case strings.Contains(accountID, "US"):
		return RoleCustomer
	default:
		return RoleUnknown
	}
}
