package models

// OrderStatus is an order's position in the fixed nine-stage lifecycle
type OrderStatus string

const (
	StatusNew        OrderStatus = "new"
	StatusAssigned   OrderStatus = "assigned"
	StatusScheduled  OrderStatus = "scheduled"
	StatusInProgress OrderStatus = "in_progress"
	StatusInReview   OrderStatus = "in_review"
	StatusRevisions  OrderStatus = "revisions"
	StatusCompleted  OrderStatus = "completed"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in workflow order
var OrderStatuses = []OrderStatus{
	StatusNew, StatusAssigned, StatusScheduled, StatusInProgress, StatusInReview,
	StatusRevisions, StatusCompleted, StatusDelivered, StatusCancelled,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// OrderPriority orders the work queue
type OrderPriority string

const (
	PriorityRush   OrderPriority = "rush"
	PriorityHigh   OrderPriority = "high"
	PriorityNormal OrderPriority = "normal"
	PriorityLow    OrderPriority = "low"
)

var OrderPriorities = []OrderPriority{PriorityRush, PriorityHigh, PriorityNormal, PriorityLow}

// Valid reports whether p is a known priority
func (p OrderPriority) Valid() bool {
	for _, v := range OrderPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// OrderType is the purpose of the appraisal
type OrderType string

const (
	OrderTypePurchase   OrderType = "purchase"
	OrderTypeRefinance  OrderType = "refinance"
	OrderTypeHomeEquity OrderType = "home_equity"
	OrderTypeEstate     OrderType = "estate"
	OrderTypeDivorce    OrderType = "divorce"
	OrderTypeTaxAppeal  OrderType = "tax_appeal"
	OrderTypeOther      OrderType = "other"
)

var OrderTypes = []OrderType{
	OrderTypePurchase, OrderTypeRefinance, OrderTypeHomeEquity, OrderTypeEstate,
	OrderTypeDivorce, OrderTypeTaxAppeal, OrderTypeOther,
}

// Valid reports whether t is a known order type
func (t OrderType) Valid() bool {
	for _, v := range OrderTypes {
		if v == t {
			return true
		}
	}
	return false
}

// PropertyType is the kind of property being appraised
type PropertyType string

const (
	PropertySingleFamily PropertyType = "single_family"
	PropertyCondo        PropertyType = "condo"
	PropertyMultiFamily  PropertyType = "multi_family"
	PropertyCommercial   PropertyType = "commercial"
	PropertyLand         PropertyType = "land"
	PropertyManufactured PropertyType = "manufactured"
)

var PropertyTypes = []PropertyType{
	PropertySingleFamily, PropertyCondo, PropertyMultiFamily,
	PropertyCommercial, PropertyLand, PropertyManufactured,
}

// Valid reports whether t is a known property type
func (t PropertyType) Valid() bool {
	for _, v := range PropertyTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DocumentType classifies an uploaded document
type DocumentType string

const (
	DocumentContract   DocumentType = "contract"
	DocumentReport     DocumentType = "report"
	DocumentInvoice    DocumentType = "invoice"
	DocumentPhoto      DocumentType = "photo"
	DocumentComparable DocumentType = "comparable"
	DocumentOther      DocumentType = "other"
)

var DocumentTypes = []DocumentType{
	DocumentContract, DocumentReport, DocumentInvoice, DocumentPhoto, DocumentComparable, DocumentOther,
}

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}
