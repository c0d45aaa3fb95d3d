package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/store"
	"github.com/shopspring/decimal"
)

const seedActor = "system"

// DemoClients are the client records loaded by SeedDemoData
var DemoClients = []models.Client{
	{
		ID:             "6f1c2b7e-4d1a-4c39-9a57-0d3f5e6a1b01",
		CompanyName:    "First National Bank",
		PrimaryContact: "Dana Whitfield",
		Email:          "orders@firstnational.example.com",
		Phone:          "(512) 555-0142",
		PaymentTerms:   30,
		FeeSchedule: map[string]decimal.Decimal{
			string(models.PropertySingleFamily): decimal.NewFromInt(450),
			string(models.PropertyCondo):        decimal.NewFromInt(400),
			string(models.PropertyMultiFamily):  decimal.NewFromInt(650),
		},
		PreferredTurnaround: 7,
		IsActive:            true,
	},
	{
		ID:             "0b9d8e3a-7f52-4e0c-8c41-5a6b7c8d9e02",
		CompanyName:    "Heritage Mortgage Co.",
		PrimaryContact: "Luis Ortega",
		Email:          "appraisals@heritagemortgage.example.com",
		Phone:          "(737) 555-0199",
		PaymentTerms:   15,
		FeeSchedule: map[string]decimal.Decimal{
			string(models.PropertySingleFamily): decimal.NewFromInt(475),
			string(models.PropertyCommercial):   decimal.NewFromInt(1500),
		},
		PreferredTurnaround: 5,
		IsActive:            true,
	},
}

// DemoTemplateID identifies the seeded "Rush purchase" template
const DemoTemplateID = "c3a4e5f6-1b2c-4d3e-8f90-a1b2c3d4e503"

var demoStreets = []string{
	"Main Street", "Oak Avenue", "Cedar Lane", "Lakeview Drive", "Pecan Street", "Congress Avenue",
}

var demoBorrowers = []string{
	"John Smith", "Maria Garcia", "Robert Chen", "Aisha Patel", "Michael Brown", "Emily Davis",
}

var demoStatuses = []models.OrderStatus{
	models.StatusNew, models.StatusAssigned, models.StatusScheduled, models.StatusInProgress,
	models.StatusInReview, models.StatusRevisions, models.StatusCompleted, models.StatusDelivered,
	models.StatusNew, models.StatusAssigned, models.StatusInProgress, models.StatusCancelled,
}

var demoPriorities = []models.OrderPriority{
	models.PriorityNormal, models.PriorityRush, models.PriorityHigh, models.PriorityLow,
}

// SeedDemoData loads the demo clients, template and orders into an empty collection
func SeedDemoData(ctx context.Context, s store.Store, orders *OrderService) error {
	count, err := s.CountOrders(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for i := range DemoClients {
		client := DemoClients[i]
		if err := s.SaveClient(ctx, &client); err != nil {
			return fmt.Errorf("seed client %s: %w", client.CompanyName, err)
		}
	}

	if err := s.SaveTemplate(ctx, &models.OrderTemplate{
		ID:       DemoTemplateID,
		Name:     "Rush purchase",
		ClientID: DemoClients[0].ID,
		Defaults: map[string]any{
			"order_type":    string(models.OrderTypePurchase),
			"priority":      string(models.PriorityRush),
			"property_type": string(models.PropertySingleFamily),
			"client_id":     DemoClients[0].ID,
			"fee_amount":    "550",
			"tech_fee":      "25",
		},
		CreatedBy: seedActor,
		CreatedAt: orders.Now(),
	}); err != nil {
		return fmt.Errorf("seed template: %w", err)
	}

	now := orders.Now()
	for i, status := range demoStatuses {
		client := DemoClients[i%len(DemoClients)]
		due := now.Add(time.Duration(3+i) * 24 * time.Hour)
		order := models.Order{
			Status:           status,
			Priority:         demoPriorities[i%len(demoPriorities)],
			OrderType:        models.OrderTypes[i%len(models.OrderTypes)],
			PropertyAddress:  fmt.Sprintf("%d %s", 100+i*17, demoStreets[i%len(demoStreets)]),
			PropertyCity:     "Austin",
			PropertyState:    "TX",
			PropertyZip:      fmt.Sprintf("787%02d", i+1),
			PropertyType:     models.PropertySingleFamily,
			LoanAmount:       decimal.NewFromInt(int64(250000 + i*15000)),
			ClientID:         client.ID,
			LoanOfficer:      client.PrimaryContact,
			LoanOfficerEmail: client.Email,
			BorrowerName:     demoBorrowers[i%len(demoBorrowers)],
			BorrowerPhone:    fmt.Sprintf("(512) 555-01%02d", i),
			DueDate:          &due,
			FeeAmount:        client.FeeSchedule[string(models.PropertySingleFamily)],
			TechFee:          decimal.NewFromInt(25),
		}
		if status != models.StatusNew && status != models.StatusCancelled {
			order.AssignedTo = fmt.Sprintf("appraiser-%d", i%3+1)
			order.AssignedDate = &now
		}
		if _, err := orders.Create(ctx, order, seedActor); err != nil {
			return fmt.Errorf("seed order %d: %w", i+1, err)
		}
	}
	return nil
}
