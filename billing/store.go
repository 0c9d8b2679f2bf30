package billing

import (
	"context"

	"github.com/warp/agency-ledger/ledger"
)

// Getters return (nil, nil) when the record does not exist.
// Delete* report whether a row was removed.

type CustomerStore interface {
	SaveCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id ledger.CustomerID) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	DeleteCustomer(ctx context.Context, id ledger.CustomerID) (bool, error)
}

type ProjectStore interface {
	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	ListProjectsByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]Project, error)
	DeleteProject(ctx context.Context, id ProjectID) (bool, error)
}

type DomainStore interface {
	SaveDomain(ctx context.Context, d Domain) error
	GetDomain(ctx context.Context, id DomainID) (*Domain, error)
	ListDomains(ctx context.Context) ([]Domain, error)
	ListDomainsByProject(ctx context.Context, projectID ProjectID) ([]Domain, error)

	// ListDomainsExpiringBy returns domains whose validity date is on or before day.
	ListDomainsExpiringBy(ctx context.Context, day ledger.Date) ([]Domain, error)
	DeleteDomain(ctx context.Context, id DomainID) (bool, error)
}

type PaymentStore interface {
	SavePayment(ctx context.Context, p Payment) error
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)

	// ListPaymentsByCustomer returns newest first.
	ListPaymentsByCustomer(ctx context.Context, customerID ledger.CustomerID) ([]Payment, error)

	// FindPayments returns payments matching all set filter fields, oldest first.
	FindPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
}

type PaymentFilter struct {
	CustomerID  ledger.CustomerID
	ReferenceID string
	Type        PaymentType
	Status      PaymentStatus
}

// RecordStore is everything the billing service persists besides ledger entries.
type RecordStore interface {
	CustomerStore
	ProjectStore
	DomainStore
	PaymentStore
}
