// internal/workers/lead-qualification/sync-crm-lead/handler.go
package synccrmlead

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/common/metrics"
	"lead-qualifier/internal/common/zoho"
	"lead-qualifier/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "sync-crm-lead"
)

// CRM is satisfied by zoho.CRMClient.
type CRM interface {
	UpsertLead(ctx context.Context, lead *zoho.Lead) (string, string, error)
}

type Handler struct {
	config       *Config
	crm          CRM
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, crm CRM, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		crm:          crm,
		logger:       scoped,
		errorHandler: errors.NewErrorHandler(scoped),
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

// SyncLead upserts a lead saved by the lead service.
func (h *Handler) SyncLead(ctx context.Context, lead *models.Lead) error {
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

	syncedAt := h.now().UTC().Format(time.RFC3339)
	if !h.config.Enabled || h.crm == nil {
		return &Output{Action: ActionDisabled, SyncedAt: syncedAt}, nil
	}

	id, action, err := h.crm.UpsertLead(ctx, toZohoLead(input, h.config.LeadSource))
	if err != nil {
		return nil, errors.NewCRMSyncFailedError(err)
	}

	h.logger.Info("lead synced to CRM", map[string]interface{}{
		"email":  input.Email,
		"crmId":  id,
		"action": action,
	})

	return &Output{CRMID: id, Action: action, SyncedAt: syncedAt}, nil
}

func toZohoLead(input *Input, source string) *zoho.Lead {
	email := models.NormalizeEmail(input.Email)
	lastName := email
	if at := strings.Index(email, "@"); at > 0 {
		lastName = email[:at]
	}

	return &zoho.Lead{
		Email:       email,
		LastName:    lastName,
		Company:     input.CompanyName,
		LeadSource:  source,
		LeadStatus:  leadStatus(models.RelevanceTag(input.RelevanceTag)),
		Rating:      input.RelevanceTag,
		Description: fmt.Sprintf("Qualification score %d (%s)", input.Score, input.RelevanceTag),
	}
}

func leadStatus(tag models.RelevanceTag) string {
	switch {
	case tag.IsHot():
		return StatusPreQualified
	case tag == models.TagNotRelevant:
		return StatusJunk
	default:
		return StatusNotQualified
	}
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
