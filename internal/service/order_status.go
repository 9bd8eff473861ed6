package service

import (
	"strings"

	"github.com/aurelia-shop/internal/constants"
)

// allowedTransitions 订单状态流转表。delivered 与 cancelled 为终态。
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
		constants.OrderStatusCancelled: true,
	},
}

func isTransitionAllowed(current, target string) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

func isOrderStatusValid(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case constants.OrderStatusPending, constants.OrderStatusConfirmed, constants.OrderStatusShipped, constants.OrderStatusDelivered, constants.OrderStatusCancelled:
		return true
	default:
		return false
	}
}
