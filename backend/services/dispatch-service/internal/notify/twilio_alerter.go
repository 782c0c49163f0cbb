package notify

import (
	"context"
	"fmt"

	"github.com/driverpool/mono-repo/backend/shared/go-models"
	"github.com/driverpool/mono-repo/backend/shared/go-utils"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSClient is the slice of the Twilio API service we use.
type SMSClient interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioAlerter texts the operator. With Enabled false or no operator phone
// it only logs.
type TwilioAlerter struct {
	client        SMSClient
	fromPhone     string
	operatorPhone string
	enabled       bool
}

func NewTwilioAlerter(client SMSClient, fromPhone, operatorPhone string, enabled bool) *TwilioAlerter {
	return &TwilioAlerter{
		client:        client,
		fromPhone:     fromPhone,
		operatorPhone: operatorPhone,
		enabled:       enabled,
	}
}

func (a *TwilioAlerter) AlertNoEligibleDrivers(ctx context.Context, job *models.Job) (string, error) {
	body := fmt.Sprintf("%s: job %s (%s, %s) was approved but no eligible drivers exist. Nothing was sent.",
		utils.OrganizationName, job.ID, job.City, job.WindowStart.UTC().Format("Jan 2 15:04"))

	if !a.enabled || a.client == nil || a.operatorPhone == "" {
		utils.Logger.WithField("job_id", job.ID).Warn("No eligible drivers for approved job; operator SMS disabled")
		return "", nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(a.operatorPhone)
	params.SetFrom(a.fromPhone)
	params.SetBody(body)
	if _, err := a.client.CreateMessage(params); err != nil {
		return a.operatorPhone, fmt.Errorf("%w: twilio: %v", utils.ErrExternalServiceFailure, err)
	}
	return a.operatorPhone, nil
}
