// Package payroll computes and records salary payments.
package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/manara-erp/manara/internal/ledger"
	"github.com/manara-erp/manara/internal/masterdata"
)

var (
	// ErrEmployeeNotFound is returned when paying an unregistered employee.
	ErrEmployeeNotFound = errors.New("payroll: employee not found")
	// ErrInvalidPeriod is returned for months outside 1..12 or empty years.
	ErrInvalidPeriod = errors.New("payroll: invalid pay period")
)

// Ledger is the store surface payroll depends on.
type Ledger interface {
	Entity(kind masterdata.Kind, id string) (masterdata.Entity, bool)
	PaySalary(ctx context.Context, payment ledger.SalaryPayment) (ledger.Outcome, error)
	SalaryPayments() []ledger.SalaryPayment
}

// PaymentInput describes one salary disbursement.
type PaymentInput struct {
	EmployeeID string
	Month      int
	Year       int
	Bonus      decimal.Decimal
	Deduction  decimal.Decimal
	SafeID     string
	Date       string
	BranchID   string
}

// NetSalary is base plus bonus minus deduction. It may be negative.
func NetSalary(base, bonus, deduction decimal.Decimal) decimal.Decimal {
	return base.Add(bonus).Sub(deduction)
}

// Service records salary payments against the ledger.
type Service struct {
	ledger Ledger
}

// NewService constructs the payroll service.
func NewService(l Ledger) *Service {
	return &Service{ledger: l}
}

// Pay computes the net salary of the employee and appends the payment.
func (s *Service) Pay(ctx context.Context, in PaymentInput) (ledger.SalaryPayment, ledger.Outcome, error) {
	if in.Month < 1 || in.Month > 12 || in.Year <= 0 {
		return ledger.SalaryPayment{}, ledger.Outcome{}, fmt.Errorf("%w: %d/%d", ErrInvalidPeriod, in.Month, in.Year)
	}
	e, _ := s.ledger.Entity(masterdata.KindEmployee, in.EmployeeID)
	employee, ok := e.(masterdata.Employee)
	if !ok {
		return ledger.SalaryPayment{}, ledger.Outcome{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, in.EmployeeID)
	}

	branch := in.BranchID
	if branch == "" {
		branch = employee.BranchID
	}
	payment := ledger.SalaryPayment{
		ID:           ledger.NewTransactionID(),
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		Month:        in.Month,
		Year:         in.Year,
		Bonus:        in.Bonus,
		Deduction:    in.Deduction,
		NetSalary:    NetSalary(employee.BaseSalary, in.Bonus, in.Deduction),
		Date:         in.Date,
		SafeID:       in.SafeID,
		BranchID:     branch,
	}
	outcome, err := s.ledger.PaySalary(ctx, payment)
	if err != nil {
		return ledger.SalaryPayment{}, ledger.Outcome{}, err
	}
	payment.Date = outcome.Transaction.Date
	return payment, outcome, nil
}

// Payments lists recorded salary payments.
func (s *Service) Payments() []ledger.SalaryPayment {
	return s.ledger.SalaryPayments()
}
