// Package finance keeps the parish books: income received and expense
// vouchers raised against it.
package finance

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Category classifies both income and expenses.
type Category string

// PaymentMethod is how money changed hands.
type PaymentMethod string

// ApprovalStatus tracks an expense voucher through review.
type ApprovalStatus string

const (
	CategoryTithe               Category = "TITHE"
	CategoryOffertory           Category = "OFFERTORY"
	CategoryThanksgiving        Category = "THANKSGIVING"
	CategoryDonation            Category = "DONATION"
	CategoryFundraising         Category = "FUNDRAISING"
	CategoryMassOffering        Category = "MASS_OFFERING"
	CategoryWeddingFee          Category = "WEDDING_FEE"
	CategoryBaptismFee          Category = "BAPTISM_FEE"
	CategoryFuneralFee          Category = "FUNERAL_FEE"
	CategoryCertificateFee      Category = "CERTIFICATE_FEE"
	CategoryRentIncome          Category = "RENT_INCOME"
	CategoryInvestmentIncome    Category = "INVESTMENT_INCOME"
	CategoryOtherIncome         Category = "OTHER_INCOME"
	CategorySalaryExpense       Category = "SALARY_EXPENSE"
	CategoryUtilitiesExpense    Category = "UTILITIES_EXPENSE"
	CategoryMaintenanceExpense  Category = "MAINTENANCE_EXPENSE"
	CategorySuppliesExpense     Category = "SUPPLIES_EXPENSE"
	CategoryDiocesanLevy        Category = "DIOCESAN_LEVY"
	CategoryCharityExpense      Category = "CHARITY_EXPENSE"
	CategoryConstructionExpense Category = "CONSTRUCTION_EXPENSE"
	CategoryOtherExpense        Category = "OTHER_EXPENSE"

	PaymentCash         PaymentMethod = "CASH"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMpesa        PaymentMethod = "MPESA"
	PaymentTigoPesa     PaymentMethod = "TIGO_PESA"
	PaymentAirtelMoney  PaymentMethod = "AIRTEL_MONEY"
	PaymentHalopesa     PaymentMethod = "HALOPESA"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentOther        PaymentMethod = "OTHER"

	ApprovalPending   ApprovalStatus = "PENDING"
	ApprovalApproved  ApprovalStatus = "APPROVED"
	ApprovalRejected  ApprovalStatus = "REJECTED"
	ApprovalCancelled ApprovalStatus = "CANCELLED"
)

var (
	categories = []Category{
		CategoryTithe, CategoryOffertory, CategoryThanksgiving, CategoryDonation, CategoryFundraising,
		CategoryMassOffering, CategoryWeddingFee, CategoryBaptismFee, CategoryFuneralFee, CategoryCertificateFee,
		CategoryRentIncome, CategoryInvestmentIncome, CategoryOtherIncome,
		CategorySalaryExpense, CategoryUtilitiesExpense, CategoryMaintenanceExpense, CategorySuppliesExpense,
		CategoryDiocesanLevy, CategoryCharityExpense, CategoryConstructionExpense, CategoryOtherExpense,
	}
	paymentMethods = []PaymentMethod{
		PaymentCash, PaymentCheque, PaymentBankTransfer, PaymentMpesa, PaymentTigoPesa,
		PaymentAirtelMoney, PaymentHalopesa, PaymentCreditCard, PaymentOther,
	}
	approvalStatuses = []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalCancelled}
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return slices.Contains(categories, c) }

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool { return slices.Contains(paymentMethods, m) }

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool { return slices.Contains(approvalStatuses, s) }

// ParseCategory accepts the wire form in any case, with spaces or hyphens for underscores.
func ParseCategory(raw string) (Category, error) {
	c := Category(normalizeEnum(raw))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// ParsePaymentMethod is the PaymentMethod counterpart of ParseCategory.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(normalizeEnum(raw))
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment_method %q", raw)
	}
	return m, nil
}

func normalizeEnum(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// IncomeTransaction is money received by a parish.
type IncomeTransaction struct {
	ID                uuid.UUID       `json:"id"`
	ParishID          uuid.UUID       `json:"parish_id"`
	MemberID          *uuid.UUID      `json:"member_id"`
	FamilyID          *uuid.UUID      `json:"family_id"`
	TransactionNumber string          `json:"transaction_number"`
	Category          Category        `json:"category"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	TransactionDate   pgtype.Date     `json:"transaction_date"`
	TransactionTime   *string         `json:"transaction_time"`
	Description       *string         `json:"description"`
	ReferenceNumber   *string         `json:"reference_number"`
	ReceivedBy        *uuid.UUID      `json:"received_by"`
	ReceiptPrinted    *bool           `json:"receipt_printed"`
	IsSynced          *bool           `json:"is_synced"`
	SyncedAt          *time.Time      `json:"synced_at"`
	CreatedAt         *time.Time      `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at"`
}

// OwnerParish returns the parish whose books hold the transaction.
func (t IncomeTransaction) OwnerParish() uuid.UUID { return t.ParishID }

// Validate checks required fields, enums and the amount.
func (t IncomeTransaction) Validate() error {
	switch {
	case t.ID == uuid.Nil:
		return fmt.Errorf("missing field `id`")
	case t.ParishID == uuid.Nil:
		return fmt.Errorf("missing field `parish_id`")
	case strings.TrimSpace(t.TransactionNumber) == "":
		return fmt.Errorf("missing field `transaction_number`")
	case !t.Category.Valid():
		return fmt.Errorf("unknown category %q", t.Category)
	case !t.PaymentMethod.Valid():
		return fmt.Errorf("unknown payment_method %q", t.PaymentMethod)
	case !t.Amount.IsPositive():
		return fmt.Errorf("amount must be positive")
	case !t.TransactionDate.Valid:
		return fmt.Errorf("missing field `transaction_date`")
	}
	if t.TransactionTime != nil {
		if _, err := time.Parse(time.TimeOnly, *t.TransactionTime); err != nil {
			return fmt.Errorf("transaction_time must be HH:MM:SS")
		}
	}
	return nil
}

// ExpenseVoucher is a request to pay money out of parish funds.
type ExpenseVoucher struct {
	ID              uuid.UUID       `json:"id"`
	ParishID        uuid.UUID       `json:"parish_id"`
	VoucherNumber   string          `json:"voucher_number"`
	Category        Category        `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PayeeName       string          `json:"payee_name"`
	PayeePhone      *string         `json:"payee_phone"`
	ExpenseDate     pgtype.Date     `json:"expense_date"`
	Description     string          `json:"description"`
	ReferenceNumber *string         `json:"reference_number"`
	ApprovalStatus  *ApprovalStatus `json:"approval_status"`
	RequestedBy     uuid.UUID       `json:"requested_by"`
	ApprovedBy      *uuid.UUID      `json:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	RejectionReason *string         `json:"rejection_reason"`
	Paid            *bool           `json:"paid"`
	PaidAt          *time.Time      `json:"paid_at"`
	IsSynced        *bool           `json:"is_synced"`
	SyncedAt        *time.Time      `json:"synced_at"`
	CreatedAt       *time.Time      `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at"`
}

// OwnerParish returns the parish whose books hold the voucher.
func (v ExpenseVoucher) OwnerParish() uuid.UUID { return v.ParishID }

// Validate checks required fields, enums and the amount.
func (v ExpenseVoucher) Validate() error {
	switch {
	case v.ID == uuid.Nil:
		return fmt.Errorf("missing field `id`")
	case v.ParishID == uuid.Nil:
		return fmt.Errorf("missing field `parish_id`")
	case strings.TrimSpace(v.VoucherNumber) == "":
		return fmt.Errorf("missing field `voucher_number`")
	case !v.Category.Valid():
		return fmt.Errorf("unknown category %q", v.Category)
	case !v.PaymentMethod.Valid():
		return fmt.Errorf("unknown payment_method %q", v.PaymentMethod)
	case !v.Amount.IsPositive():
		return fmt.Errorf("amount must be positive")
	case strings.TrimSpace(v.PayeeName) == "":
		return fmt.Errorf("missing field `payee_name`")
	case !v.ExpenseDate.Valid:
		return fmt.Errorf("missing field `expense_date`")
	case strings.TrimSpace(v.Description) == "":
		return fmt.Errorf("missing field `description`")
	case v.RequestedBy == uuid.Nil:
		return fmt.Errorf("missing field `requested_by`")
	case v.ApprovalStatus != nil && !v.ApprovalStatus.Valid():
		return fmt.Errorf("unknown approval_status %q", *v.ApprovalStatus)
	}
	return nil
}

// CreateIncomeInput is the payload for recording income.
type CreateIncomeInput struct {
	ParishID        *uuid.UUID      `json:"parish_id"`
	MemberID        *uuid.UUID      `json:"member_id"`
	FamilyID        *uuid.UUID      `json:"family_id"`
	Category        Category        `json:"category" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method" validate:"required"`
	TransactionDate pgtype.Date     `json:"transaction_date"`
	TransactionTime *string         `json:"transaction_time"`
	Description     *string         `json:"description"`
	ReferenceNumber *string         `json:"reference_number"`
	ReceivedBy      *uuid.UUID      `json:"received_by"`
}

// CreateExpenseInput is the payload for raising a voucher.
type CreateExpenseInput struct {
	ParishID        *uuid.UUID      `json:"parish_id"`
	Category        Category        `json:"category" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method" validate:"required"`
	PayeeName       string          `json:"payee_name" validate:"required,max=200"`
	PayeePhone      *string         `json:"payee_phone"`
	ExpenseDate     pgtype.Date     `json:"expense_date"`
	Description     string          `json:"description" validate:"required"`
	ReferenceNumber *string         `json:"reference_number"`
}

// NewIncome builds a transaction in parishID. ReceivedBy defaults to the recorder.
func NewIncome(parishID, recorder uuid.UUID, number string, in CreateIncomeInput) IncomeTransaction {
	receivedBy := in.ReceivedBy
	if receivedBy == nil {
		receivedBy = &recorder
	}
	return IncomeTransaction{
		ID:                uuid.New(),
		ParishID:          parishID,
		MemberID:          in.MemberID,
		FamilyID:          in.FamilyID,
		TransactionNumber: number,
		Category:          in.Category,
		Amount:            in.Amount,
		PaymentMethod:     in.PaymentMethod,
		TransactionDate:   in.TransactionDate,
		TransactionTime:   in.TransactionTime,
		Description:       in.Description,
		ReferenceNumber:   in.ReferenceNumber,
		ReceivedBy:        receivedBy,
	}
}

// NewExpense builds a pending voucher in parishID requested by requester.
func NewExpense(parishID, requester uuid.UUID, number string, in CreateExpenseInput) ExpenseVoucher {
	pending := ApprovalPending
	return ExpenseVoucher{
		ID:              uuid.New(),
		ParishID:        parishID,
		VoucherNumber:   number,
		Category:        in.Category,
		Amount:          in.Amount,
		PaymentMethod:   in.PaymentMethod,
		PayeeName:       strings.TrimSpace(in.PayeeName),
		PayeePhone:      in.PayeePhone,
		ExpenseDate:     in.ExpenseDate,
		Description:     strings.TrimSpace(in.Description),
		ReferenceNumber: in.ReferenceNumber,
		ApprovalStatus:  &pending,
		RequestedBy:     requester,
	}
}

// ListFilter narrows listings to one parish.
type ListFilter struct {
	ParishID uuid.UUID
	Limit    int
	Offset   int
}
