package intake

import (
	"bufio"
	"context"
	"strings"

	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/services"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// EmailMessage is an order request forwarded from a mailbox
type EmailMessage struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// ClientLister lists the clients an email can name
type ClientLister interface {
	Clients(ctx context.Context) ([]models.Client, error)
}

// EmailIntake turns "Label: value" lines of an email into a quick entry order
type EmailIntake struct {
	clients ClientLister
	submit  SubmitFunc
	logger  *logrus.Logger
}

// NewEmailIntake builds the email intake. Client names in emails are resolved through clients.
func NewEmailIntake(clients ClientLister, submit SubmitFunc, logger *logrus.Logger) *EmailIntake {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EmailIntake{clients: clients, submit: submit, logger: logger}
}

type emailSetter func(o *models.Order, v string) error

func setText(field func(o *models.Order) *string) emailSetter {
	return func(o *models.Order, v string) error {
		*field(o) = v
		return nil
	}
}

func setMoney(field func(o *models.Order) *decimal.Decimal) emailSetter {
	return func(o *models.Order, v string) error {
		d, err := decimal.NewFromString(strings.NewReplacer("$", "", ",", "").Replace(v))
		if err != nil {
			return err
		}
		*field(o) = d
		return nil
	}
}

// emailLabels maps a label, lowercased with spaces and punctuation removed, to its order field
var emailLabels = map[string]struct {
	field string
	set   emailSetter
}{
	"address":         {"property_address", setText(func(o *models.Order) *string { return &o.PropertyAddress })},
	"propertyaddress": {"property_address", setText(func(o *models.Order) *string { return &o.PropertyAddress })},
	"city":            {"property_city", setText(func(o *models.Order) *string { return &o.PropertyCity })},
	"state":           {"property_state", setText(func(o *models.Order) *string { return &o.PropertyState })},
	"zip":             {"property_zip", setText(func(o *models.Order) *string { return &o.PropertyZip })},
	"zipcode":         {"property_zip", setText(func(o *models.Order) *string { return &o.PropertyZip })},
	"borrower":        {"borrower_name", setText(func(o *models.Order) *string { return &o.BorrowerName })},
	"borrowername":    {"borrower_name", setText(func(o *models.Order) *string { return &o.BorrowerName })},
	"borrowerphone":   {"borrower_phone", func(o *models.Order, v string) error { o.BorrowerPhone = utils.FormatPhoneNumber(v); return nil }},
	"phone":           {"borrower_phone", func(o *models.Order, v string) error { o.BorrowerPhone = utils.FormatPhoneNumber(v); return nil }},
	"borroweremail":   {"borrower_email", setText(func(o *models.Order) *string { return &o.BorrowerEmail })},
	"loannumber":      {"loan_number", setText(func(o *models.Order) *string { return &o.LoanNumber })},
	"loantype":        {"loan_type", setText(func(o *models.Order) *string { return &o.LoanType })},
	"loanamount":      {"loan_amount", setMoney(func(o *models.Order) *decimal.Decimal { return &o.LoanAmount })},
	"lender":          {"lender_name", setText(func(o *models.Order) *string { return &o.LenderName })},
	"loanofficer":     {"loan_officer", setText(func(o *models.Order) *string { return &o.LoanOfficer })},
	"fee":             {"fee_amount", setMoney(func(o *models.Order) *decimal.Decimal { return &o.FeeAmount })},
	"feeamount":       {"fee_amount", setMoney(func(o *models.Order) *decimal.Decimal { return &o.FeeAmount })},
	"techfee":         {"tech_fee", setMoney(func(o *models.Order) *decimal.Decimal { return &o.TechFee })},
	"instructions":    {"special_instructions", setText(func(o *models.Order) *string { return &o.SpecialInstructions })},
	"notes":           {"special_instructions", setText(func(o *models.Order) *string { return &o.SpecialInstructions })},
	"access":          {"access_instructions", setText(func(o *models.Order) *string { return &o.AccessInstructions })},
	"priority": {"priority", func(o *models.Order, v string) error {
		o.Priority = models.OrderPriority(strings.ToLower(v))
		return nil
	}},
	"ordertype": {"order_type", func(o *models.Order, v string) error {
		o.OrderType = models.OrderType(strings.ToLower(strings.ReplaceAll(v, " ", "_")))
		return nil
	}},
	"propertytype": {"property_type", func(o *models.Order, v string) error {
		o.PropertyType = models.PropertyType(strings.ToLower(strings.ReplaceAll(v, " ", "_")))
		return nil
	}},
	"duedate": {"due_date", func(o *models.Order, v string) error {
		t, err := utils.ParseDate(v)
		if err != nil {
			return err
		}
		o.DueDate = &t
		return nil
	}},
}

func emailLabelKey(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse reads the order fields out of the message. Lines that are not "Label: value" with a known label are ignored.
func (e *EmailIntake) Parse(ctx context.Context, msg EmailMessage) (models.Order, error) {
	order := models.Order{
		Status:   models.StatusNew,
		Source:   models.SourceEmail,
		Priority: models.PriorityNormal,
	}
	var errs services.ValidationErrors
	found := 0
	var client string

	scanner := bufio.NewScanner(strings.NewReader(msg.Body))
	for scanner.Scan() {
		label, value, ok := strings.Cut(scanner.Text(), ":")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		key := emailLabelKey(label)
		if key == "client" || key == "clientname" || key == "clientid" {
			client = value
			found++
			continue
		}
		target, known := emailLabels[key]
		if !known {
			continue
		}
		found++
		if err := target.set(&order, value); err != nil {
			errs = append(errs, services.ValidationError{Field: target.field, Message: "has an invalid value"})
		}
	}
	if err := scanner.Err(); err != nil {
		return order, err
	}
	if found == 0 {
		return order, services.ValidationErrors{{Field: "body", Message: "contains no order fields"}}
	}

	if subject := strings.ToLower(msg.Subject); order.Priority == models.PriorityNormal &&
		(strings.Contains(subject, "rush") || strings.Contains(subject, "urgent")) {
		order.Priority = models.PriorityRush
	}
	if order.LoanOfficerEmail == "" {
		order.LoanOfficerEmail = strings.TrimSpace(msg.From)
	}
	if client != "" {
		id, err := e.resolveClient(ctx, client)
		if err != nil {
			return order, err
		}
		if id == "" {
			errs = append(errs, services.ValidationError{Field: "client_id", Message: "must reference an existing client"})
		}
		order.ClientID = id
	}
	if len(errs) > 0 {
		return order, errs
	}
	return order, nil
}

// resolveClient accepts a client id or a company name, ignoring case
func (e *EmailIntake) resolveClient(ctx context.Context, nameOrID string) (string, error) {
	if e.clients == nil {
		return nameOrID, nil
	}
	clients, err := e.clients.Clients(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range clients {
		if c.ID == nameOrID || strings.EqualFold(c.CompanyName, nameOrID) {
			return c.ID, nil
		}
	}
	return "", nil
}

// Submit parses the message and creates the order with the quick entry rules
func (e *EmailIntake) Submit(ctx context.Context, msg EmailMessage) (*models.Order, error) {
	order, err := e.Parse(ctx, msg)
	if err != nil {
		return nil, err
	}
	created, err := e.submit(ctx, order)
	if err != nil {
		if !services.IsValidation(err) {
			config.LogError(e.logger, "intake", "EmailIntake.Submit", "failed to create order from email", msg.Subject, err)
		}
		return nil, err
	}
	e.logger.WithFields(logrus.Fields{"order_id": created.ID, "subject": msg.Subject}).Info("order created from email")
	return created, nil
}
