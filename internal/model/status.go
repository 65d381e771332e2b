package model

// OrderStatus is the closed set of commercial statuses a Private Client
// Order moves through. The transition graph lives in AllowedNext.
type OrderStatus string

const (
	StatusDraft                      OrderStatus = "draft"
	StatusSubmitted                  OrderStatus = "submitted"
	StatusUnderCCReview              OrderStatus = "under_cc_review"
	StatusRevisionRequested          OrderStatus = "revision_requested"
	StatusCCApproved                 OrderStatus = "cc_approved"
	StatusAwaitingPartnerVerif       OrderStatus = "awaiting_partner_verification"
	StatusAwaitingDistributorVerif   OrderStatus = "awaiting_distributor_verification"
	StatusVerificationSuspended      OrderStatus = "verification_suspended"
	StatusAwaitingClientPayment      OrderStatus = "awaiting_client_payment"
	StatusClientPaid                 OrderStatus = "client_paid"
	StatusAwaitingDistributorPayment OrderStatus = "awaiting_distributor_payment"
	StatusDistributorPaid            OrderStatus = "distributor_paid"
	StatusAwaitingPartnerPayment     OrderStatus = "awaiting_partner_payment"
	StatusPartnerPaid                OrderStatus = "partner_paid"
	StatusStockInTransit             OrderStatus = "stock_in_transit"
	StatusWithDistributor            OrderStatus = "with_distributor"
	StatusSchedulingDelivery         OrderStatus = "scheduling_delivery"
	StatusDeliveryScheduled          OrderStatus = "delivery_scheduled"
	StatusOutForDelivery             OrderStatus = "out_for_delivery"
	StatusDelivered                  OrderStatus = "delivered"
	StatusCancelled                  OrderStatus = "cancelled"
)

// AllStatuses enumerates every status; used by the transition-closure test
// and the generic status endpoint's validation.
var AllStatuses = []OrderStatus{
	StatusDraft, StatusSubmitted, StatusUnderCCReview, StatusRevisionRequested,
	StatusCCApproved, StatusAwaitingPartnerVerif, StatusAwaitingDistributorVerif,
	StatusVerificationSuspended, StatusAwaitingClientPayment, StatusClientPaid,
	StatusAwaitingDistributorPayment, StatusDistributorPaid,
	StatusAwaitingPartnerPayment, StatusPartnerPaid, StatusStockInTransit,
	StatusWithDistributor, StatusSchedulingDelivery, StatusDeliveryScheduled,
	StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// AllowedNext returns the exact one-step transition set for a status,
// cancellation included. The switch is exhaustive over the closed set so a
// new status without transitions is caught at review, not at runtime.
func AllowedNext(s OrderStatus) []OrderStatus {
	var next []OrderStatus
	switch s {
	case StatusDraft:
		next = []OrderStatus{StatusSubmitted}
	case StatusSubmitted:
		next = []OrderStatus{StatusUnderCCReview, StatusCCApproved}
	case StatusUnderCCReview:
		next = []OrderStatus{StatusRevisionRequested, StatusCCApproved}
	case StatusRevisionRequested:
		next = []OrderStatus{StatusSubmitted}
	case StatusCCApproved:
		next = []OrderStatus{StatusAwaitingPartnerVerif, StatusAwaitingDistributorVerif}
	case StatusAwaitingPartnerVerif:
		next = []OrderStatus{StatusVerificationSuspended, StatusAwaitingClientPayment}
	case StatusAwaitingDistributorVerif:
		next = []OrderStatus{StatusVerificationSuspended, StatusAwaitingClientPayment}
	case StatusVerificationSuspended:
		// Suspended verifications resume once the blocking issue is resolved.
		next = []OrderStatus{StatusAwaitingPartnerVerif, StatusAwaitingDistributorVerif}
	case StatusAwaitingClientPayment:
		next = []OrderStatus{StatusClientPaid}
	case StatusClientPaid:
		// The stock/delivery sub-flow may start as soon as the client pays,
		// interleaving with the settlement chain.
		next = []OrderStatus{StatusAwaitingDistributorPayment, StatusStockInTransit, StatusSchedulingDelivery, StatusDeliveryScheduled}
	case StatusAwaitingDistributorPayment:
		next = []OrderStatus{StatusDistributorPaid, StatusStockInTransit}
	case StatusDistributorPaid:
		next = []OrderStatus{StatusAwaitingPartnerPayment, StatusStockInTransit}
	case StatusAwaitingPartnerPayment:
		next = []OrderStatus{StatusPartnerPaid, StatusStockInTransit}
	case StatusPartnerPaid:
		next = []OrderStatus{StatusStockInTransit, StatusSchedulingDelivery}
	case StatusStockInTransit:
		next = []OrderStatus{StatusWithDistributor}
	case StatusWithDistributor:
		next = []OrderStatus{StatusSchedulingDelivery}
	case StatusSchedulingDelivery:
		next = []OrderStatus{StatusDeliveryScheduled}
	case StatusDeliveryScheduled:
		// Re-scheduling is a self transition.
		next = []OrderStatus{StatusDeliveryScheduled, StatusOutForDelivery}
	case StatusOutForDelivery:
		next = []OrderStatus{StatusDelivered}
	case StatusDelivered, StatusCancelled:
		return nil
	default:
		return nil
	}
	return append(next, StatusCancelled)
}

// CanTransition reports whether from → to is a valid one-step move.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range AllowedNext(from) {
		if s == to {
			return true
		}
	}
	return false
}

// NotificationType identifies the outbound notification raised by a
// transition. Most statuses raise none.
type NotificationType string

const (
	NotifyOrderSubmitted        NotificationType = "order_submitted"
	NotifyRevisionRequested     NotificationType = "revision_requested"
	NotifyOrderApproved         NotificationType = "order_approved"
	NotifyVerificationSuspended NotificationType = "verification_suspended"
	NotifyClientPaymentDue      NotificationType = "client_payment_due"
	NotifyDeliveryScheduled     NotificationType = "delivery_scheduled"
	NotifyOrderDelivered        NotificationType = "order_delivered"
	NotifyOrderCancelled        NotificationType = "order_cancelled"
)

// NotificationTypeFor maps a newly entered status to the notification sent
// to the originating partner. Empty string means no notification.
func NotificationTypeFor(s OrderStatus) NotificationType {
	switch s {
	case StatusSubmitted:
		return NotifyOrderSubmitted
	case StatusRevisionRequested:
		return NotifyRevisionRequested
	case StatusCCApproved:
		return NotifyOrderApproved
	case StatusVerificationSuspended:
		return NotifyVerificationSuspended
	case StatusAwaitingClientPayment:
		return NotifyClientPaymentDue
	case StatusDeliveryScheduled:
		return NotifyDeliveryScheduled
	case StatusDelivered:
		return NotifyOrderDelivered
	case StatusCancelled:
		return NotifyOrderCancelled
	case StatusDraft, StatusUnderCCReview, StatusAwaitingPartnerVerif,
		StatusAwaitingDistributorVerif, StatusClientPaid,
		StatusAwaitingDistributorPayment, StatusDistributorPaid,
		StatusAwaitingPartnerPayment, StatusPartnerPaid, StatusStockInTransit,
		StatusWithDistributor, StatusSchedulingDelivery, StatusOutForDelivery:
		return ""
	}
	return ""
}

// StockStatus is the physical custody state of a single line item's
// inventory, independent of the order's commercial status.
type StockStatus string

const (
	StockPending                StockStatus = "pending"
	StockConfirmed              StockStatus = "confirmed"
	StockAtCCBonded             StockStatus = "at_cc_bonded"
	StockInTransitToDistributor StockStatus = "in_transit_to_distributor"
	StockAtDistributor          StockStatus = "at_distributor"
	StockDelivered              StockStatus = "delivered"
)

// stockRank orders custody states so guards can compare progress.
func stockRank(s StockStatus) int {
	switch s {
	case StockPending:
		return 0
	case StockConfirmed:
		return 1
	case StockAtCCBonded:
		return 2
	case StockInTransitToDistributor:
		return 3
	case StockAtDistributor:
		return 4
	case StockDelivered:
		return 5
	}
	return -1
}

// AtLeast reports whether the custody state has reached the given floor.
func (s StockStatus) AtLeast(floor StockStatus) bool {
	return stockRank(s) >= stockRank(floor)
}

// StockSource identifies where a line item's stock originates.
type StockSource string

const (
	SourceCCInventory       StockSource = "cc_inventory"
	SourcePartnerAirfreight StockSource = "partner_airfreight"
	SourcePartnerLocalStock StockSource = "partner_local_stock"
	SourceManual            StockSource = "manual"
)
