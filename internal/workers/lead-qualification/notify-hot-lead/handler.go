// internal/workers/lead-qualification/notify-hot-lead/handler.go
package notifyhotlead

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/metrics"
	"lead-qualifier/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-hot-lead"
)

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// TopicPublisher is satisfied by aws.SNSClient.
type TopicPublisher interface {
	Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

type Handler struct {
	config       *Config
	email        EmailSender
	topic        TopicPublisher
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	templates    map[string]models.NotificationTemplate
	now          func() time.Time
}

// NewHandler builds the alert handler. Either sender may be nil, which
// disables that channel.
func NewHandler(config *Config, email EmailSender, topic TopicPublisher, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		email:        email,
		topic:        topic,
		logger:       scoped,
		errorHandler: errors.NewErrorHandler(scoped),
		templates:    defaultTemplates(),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(client, job, errors.NewValidationError("variables", fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// NotifyHotLead sends the alert for a lead saved by the lead service.
func (h *Handler) NotifyHotLead(ctx context.Context, lead *models.Lead) error {
	_, err := h.execute(ctx, &Input{
		LeadID:       lead.ID,
		Email:        lead.Email,
		CompanyName:  lead.CompanyName,
		Score:        lead.Score,
		RelevanceTag: string(lead.RelevanceTag),
	})
	return err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Email == "" {
		return nil, errors.NewValidationError("email", "email is required")
	}

	notificationID := uuid.New().String()
	sentAt := h.now().UTC().Format(time.RFC3339)

	tag := models.RelevanceTag(input.RelevanceTag)
	if !tag.IsHot() {
		h.logger.Debug("lead is not hot, skipping alert", map[string]interface{}{
			"email":        input.Email,
			"relevanceTag": input.RelevanceTag,
		})
		return &Output{NotificationID: notificationID, Status: StatusSkipped, SentAt: sentAt}, nil
	}

	notificationType := TypeHotLead
	if tag == models.TagVeryBigPotential {
		notificationType = TypeVeryBigPotential
	}
	template := h.templates[notificationType]

	data := map[string]interface{}{
		"email":        input.Email,
		"companyName":  input.CompanyName,
		"score":        input.Score,
		"relevanceTag": input.RelevanceTag,
		"calendlyLink": h.config.CalendlyLink,
	}
	if input.CompanyName == "" {
		data["companyName"] = "an unknown company"
	}
	subject := renderTemplate(template.Subject, data)
	body := renderTemplate(template.Body, data)

	var channels []string

	if h.config.EmailEnabled && h.email != nil && len(h.config.Recipients) > 0 {
		if _, err := h.email.SendText(ctx, h.config.Recipients, subject, body); err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		channels = append(channels, ChannelEmail)
	}

	// Only the largest prospects go to the topic.
	if h.config.SNSEnabled && h.topic != nil && notificationType == TypeVeryBigPotential {
		attrs := map[string]string{
			"notificationType": notificationType,
			"relevanceTag":     input.RelevanceTag,
		}
		if _, err := h.topic.Publish(ctx, subject, body, attrs); err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelSNS, err)
		}
		channels = append(channels, ChannelSNS)
	}

	status := StatusDisabled
	if len(channels) > 0 {
		status = StatusSent
	}

	h.logger.Info("hot lead alert processed", map[string]interface{}{
		"email":          input.Email,
		"notificationId": notificationID,
		"status":         status,
		"channels":       strings.Join(channels, ","),
	})

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		Channels:       channels,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// renderTemplate fills {{key}} placeholders and drops any left unfilled.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}

func defaultTemplates() map[string]models.NotificationTemplate {
	return map[string]models.NotificationTemplate{
		TypeHotLead: {
			Type:    TypeHotLead,
			Subject: "Hot lead: {{email}}",
			Body:    "{{email}} from {{companyName}} scored {{score}} ({{relevanceTag}}). A demo was offered: {{calendlyLink}}",
		},
		TypeVeryBigPotential: {
			Type:    TypeVeryBigPotential,
			Subject: "Very big potential customer: {{email}}",
			Body:    "{{email}} from {{companyName}} scored {{score}} ({{relevanceTag}}). Reach out today. Demo link: {{calendlyLink}}",
		},
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
