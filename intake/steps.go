package intake

// Step is one page of the intake wizard
type Step string

const (
	StepProperty     Step = "property"
	StepLoan         Step = "loan"
	StepContacts     Step = "contacts"
	StepOrderDetails Step = "order-details"
	StepReview       Step = "review"
)

// Steps in wizard order
var Steps = []Step{StepProperty, StepLoan, StepContacts, StepOrderDetails, StepReview}

// stepFields lists the Draft fields each step owns
var stepFields = map[Step][]string{
	StepProperty: {"PropertyAddress", "PropertyCity", "PropertyState", "PropertyZip", "PropertyType"},
	StepLoan:     {"LoanNumber", "LoanType", "LoanAmount", "LenderName", "ClientID"},
	StepContacts: {
		"BorrowerName", "BorrowerEmail", "BorrowerPhone",
		"LoanOfficer", "LoanOfficerEmail", "LoanOfficerPhone",
		"ProcessorName", "ProcessorEmail", "ProcessorPhone",
		"PropertyContactName", "PropertyContactPhone", "PropertyContactEmail",
	},
	StepOrderDetails: {
		"OrderType", "Priority", "DueDate", "FeeAmount", "TechFee",
		"AssignedTo", "AccessInstructions", "SpecialInstructions",
	},
}

func stepIndex(s Step) int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}
