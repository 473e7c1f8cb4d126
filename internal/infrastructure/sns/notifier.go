package sns

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-like-relay/internal/config"
	"github.com/go-like-relay/internal/domain"
	"github.com/go-like-relay/internal/infrastructure/dynamo"
	"github.com/go-like-relay/internal/pkg/id"
)

// Publisher is the subset of the SNS client TopicNotifier needs.
type Publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// TopicNotifier publishes outcome text to an SNS topic. A chat gateway subscribed
// to the topic reads chat_id and reply_to from the message attributes.
type TopicNotifier struct {
	client   Publisher
	topicARN string
}

func NewClient(cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := dynamo.LoadAWSConfig(cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, opts...), nil
}

func NewTopicNotifier(client Publisher, topicARN string) *TopicNotifier {
	return &TopicNotifier{client: client, topicARN: topicARN}
}

func (n *TopicNotifier) Notify(ctx context.Context, target domain.NotifyTarget, text string) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(text),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"chat_id":     numberAttr(target.ChatID),
			"reply_to":    numberAttr(target.MessageID),
			"delivery_id": {DataType: aws.String("String"), StringValue: aws.String(id.New())},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func numberAttr(v int64) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("Number"),
		StringValue: aws.String(strconv.FormatInt(v, 10)),
	}
}
