package llm

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/sophia-labs/sophia/internal/config"
	"github.com/sophia-labs/sophia/internal/metrics"
)

// BedrockModel is a completion client backed by the AWS Bedrock Converse
// API, for deployments that keep all model traffic inside AWS.
type BedrockModel struct {
	client      *bedrockruntime.Client
	modelID     string
	callTimeout time.Duration
}

var _ Completer = (*BedrockModel)(nil)

// NewBedrockModel creates a Bedrock-backed completion model using the
// default AWS credential chain.
func NewBedrockModel(ctx context.Context, cfg config.Config) (*BedrockModel, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockModel{
		client:      bedrockruntime.NewFromConfig(awsCfg),
		modelID:     cfg.BedrockModelID,
		callTimeout: defaultCallTimeout,
	}, nil
}

// Complete generates text via the Converse API.
func (m *BedrockModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	start := time.Now()
	out, err := m.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(m.modelID),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: systemPrompt},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: userPrompt},
				},
			},
		},
	})
	metrics.RecordTiming(metrics.OpCompletion, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("converse: %w", err)
	}

	message, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(message.Value.Content) == 0 {
		return "", fmt.Errorf("unexpected converse output")
	}
	text, ok := message.Value.Content[0].(*types.ContentBlockMemberText)
	if !ok {
		return "", fmt.Errorf("unexpected converse content block")
	}

	return text.Value, nil
}

// Name returns the Bedrock model id.
func (m *BedrockModel) Name() string {
	return m.modelID
}
