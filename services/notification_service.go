package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/appraisal-orders-api/config"
	"github.com/kendall-kelly/appraisal-orders-api/metrics"
	"github.com/kendall-kelly/appraisal-orders-api/models"
	"github.com/kendall-kelly/appraisal-orders-api/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notification channels
const (
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
	ChannelCalendar = "calendar"
	ChannelPayment  = "payment"
)

// Notification outcomes
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// NotificationGateway is fire-and-forget: nothing it does is reported back as an error
type NotificationGateway interface {
	SendSMS(ctx context.Context, to, body string) string
	SendEmail(ctx context.Context, to, subject, body string) string
	ScheduleCalendarEvent(ctx context.Context, order *models.Order) string
	ChargePayment(ctx context.Context, order *models.Order, amount decimal.Decimal) string
}

// Dispatcher delivers one message to a provider
type Dispatcher interface {
	Dispatch(ctx context.Context, channel string, payload map[string]any) error
}

// LogDispatcher records what would have been sent
type LogDispatcher struct {
	Logger *logrus.Logger
}

// Dispatch logs the payload instead of sending it
func (d LogDispatcher) Dispatch(_ context.Context, channel string, payload map[string]any) error {
	d.Logger.WithFields(logrus.Fields{"channel": channel, "payload": payload}).Info("notification dispatched")
	return nil
}

// NotificationSettings names which providers are configured
type NotificationSettings struct {
	SMS      bool
	Email    bool
	Calendar bool
	Payment  bool
}

// SettingsFromConfig enables each channel whose provider credential is present
func SettingsFromConfig(cfg *config.Config) NotificationSettings {
	return NotificationSettings{
		SMS:      cfg.TwilioAccountSID != "",
		Email:    cfg.SendGridAPIKey != "",
		Calendar: cfg.GoogleCalendarID != "",
		Payment:  cfg.StripeSecretKey != "",
	}
}

// NotificationService fans order notifications out to the configured channels
type NotificationService struct {
	settings   NotificationSettings
	dispatcher Dispatcher
	metrics    *metrics.Registry
	logger     *logrus.Logger
}

// NewNotificationService builds the service. A nil dispatcher logs instead of sending.
func NewNotificationService(settings NotificationSettings, dispatcher Dispatcher, m *metrics.Registry, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if dispatcher == nil {
		dispatcher = LogDispatcher{Logger: logger}
	}
	return &NotificationService{settings: settings, dispatcher: dispatcher, metrics: m, logger: logger}
}

func (n *NotificationService) send(ctx context.Context, channel string, enabled bool, payload map[string]any) string {
	if !enabled {
		n.logger.WithField("channel", channel).Info("notification channel not configured, skipping")
		n.metrics.Notification(channel, OutcomeSkipped)
		return OutcomeSkipped
	}
	if err := n.dispatcher.Dispatch(ctx, channel, payload); err != nil {
		config.LogError(n.logger, "NotificationService", "send", "notification dispatch failed", channel, err)
		n.metrics.Notification(channel, OutcomeFailed)
		return OutcomeFailed
	}
	n.metrics.Notification(channel, OutcomeSent)
	return OutcomeSent
}

// SendSMS texts body to a phone number
func (n *NotificationService) SendSMS(ctx context.Context, to, body string) string {
	return n.send(ctx, ChannelSMS, n.settings.SMS, map[string]any{"to": to, "body": body})
}

// SendEmail mails subject and body to an address
func (n *NotificationService) SendEmail(ctx context.Context, to, subject, body string) string {
	return n.send(ctx, ChannelEmail, n.settings.Email, map[string]any{"to": to, "subject": subject, "body": body})
}

// ScheduleCalendarEvent books the inspection for the order's due date
func (n *NotificationService) ScheduleCalendarEvent(ctx context.Context, order *models.Order) string {
	return n.send(ctx, ChannelCalendar, n.settings.Calendar, map[string]any{
		"order_number": order.OrderNumber,
		"title":        fmt.Sprintf("Appraisal %s", order.OrderNumber),
		"location":     fmt.Sprintf("%s, %s, %s %s", order.PropertyAddress, order.PropertyCity, order.PropertyState, order.PropertyZip),
		"due":          utils.FormatDate(order.DueDate),
	})
}

// ChargePayment charges amount against the order
func (n *NotificationService) ChargePayment(ctx context.Context, order *models.Order, amount decimal.Decimal) string {
	return n.send(ctx, ChannelPayment, n.settings.Payment, map[string]any{
		"order_number": order.OrderNumber,
		"client_id":    order.ClientID,
		"amount":       utils.FormatCurrency(amount),
	})
}

// EmailMessage is the email part of a notify request
type EmailMessage struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// NotifyRequest selects which channels to use for one order
type NotifyRequest struct {
	SMS           string           `json:"sms"`
	Email         *EmailMessage    `json:"email"`
	Calendar      bool             `json:"calendar"`
	PaymentAmount *decimal.Decimal `json:"paymentAmount"`
}

// Notify fans the request out to each selected channel and reports the outcome per channel
func Notify(ctx context.Context, gw NotificationGateway, order *models.Order, req NotifyRequest) map[string]string {
	outcomes := map[string]string{}
	if req.SMS != "" {
		if order.BorrowerPhone == "" {
			outcomes[ChannelSMS] = OutcomeSkipped
		} else {
			outcomes[ChannelSMS] = gw.SendSMS(ctx, order.BorrowerPhone, req.SMS)
		}
	}
	if req.Email != nil {
		if order.LoanOfficerEmail == "" {
			outcomes[ChannelEmail] = OutcomeSkipped
		} else {
			outcomes[ChannelEmail] = gw.SendEmail(ctx, order.LoanOfficerEmail, req.Email.Subject, req.Email.Body)
		}
	}
	if req.Calendar {
		outcomes[ChannelCalendar] = gw.ScheduleCalendarEvent(ctx, order)
	}
	if req.PaymentAmount != nil {
		outcomes[ChannelPayment] = gw.ChargePayment(ctx, order, *req.PaymentAmount)
	}
	return outcomes
}
