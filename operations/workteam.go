package operations

import (
	"context"
	"iter"

	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/gurre/smpager/aws"
	"github.com/gurre/smpager/driver"
	"github.com/urfave/cli/v2"
)

// UpdateWorkteamParams mirrors UpdateWorkteamInput. NotificationTopicArn makes
// up the optional NotificationConfiguration block.
type UpdateWorkteamParams struct {
	WorkteamName         *string `json:"workteamName,omitempty"`
	Description          *string `json:"description,omitempty"`
	NotificationTopicArn *string `json:"notificationTopicArn,omitempty"`
}

// Flags implements Params.
func (p *UpdateWorkteamParams) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "workteam-name", Usage: "Name of the workteam", Required: true},
		&cli.StringFlag{Name: "description", Usage: "New description"},
		&cli.StringFlag{Name: "notification-topic-arn", Usage: "SNS topic notified when tasks are available"},
	}
}

// Bind implements Params.
func (p *UpdateWorkteamParams) Bind(c *cli.Context) error {
	bindString(c, "workteam-name", &p.WorkteamName)
	bindString(c, "description", &p.Description)
	bindString(c, "notification-topic-arn", &p.NotificationTopicArn)
	return nil
}

// Build returns the UpdateWorkteam request with only the set fields assigned.
func (p *UpdateWorkteamParams) Build() *sagemaker.UpdateWorkteamInput {
	in := &sagemaker.UpdateWorkteamInput{
		WorkteamName: p.WorkteamName,
		Description:  p.Description,
	}
	if p.NotificationTopicArn != nil {
		in.NotificationConfiguration = &types.NotificationConfiguration{
			NotificationTopicArn: p.NotificationTopicArn,
		}
	}
	return in
}

// Invoke implements Params.
func (p *UpdateWorkteamParams) Invoke(ctx context.Context, call Call) (iter.Seq[driver.Result], error) {
	return invoke(ctx, call, updateWorkteamOp(call.Client), p.Build(), "Workteam",
		driver.Fields[sagemaker.UpdateWorkteamOutput]{
			"Workteam": func(o *sagemaker.UpdateWorkteamOutput) any { return o.Workteam },
		},
		driver.Params{
			"WorkteamName":         func() any { return deref(p.WorkteamName) },
			"Description":          func() any { return deref(p.Description) },
			"NotificationTopicArn": func() any { return deref(p.NotificationTopicArn) },
		})
}

func updateWorkteamOp(c aws.SageMakerClient) driver.Operation[sagemaker.UpdateWorkteamInput, sagemaker.UpdateWorkteamOutput] {
	return driver.Operation[sagemaker.UpdateWorkteamInput, sagemaker.UpdateWorkteamOutput]{
		Name: "UpdateWorkteam",
		Call: func(ctx context.Context, in *sagemaker.UpdateWorkteamInput) (*sagemaker.UpdateWorkteamOutput, error) {
			return c.UpdateWorkteam(ctx, in)
		},
	}
}
