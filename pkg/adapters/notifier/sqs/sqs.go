package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsSqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jademcosta/logpig/pkg/domain"
	"github.com/jademcosta/logpig/pkg/logger"
	"gopkg.in/yaml.v2"
)

const Type string = "sqs"

type sqsSendMessageAPI interface {
	SendMessage(context.Context, *awsSqs.SendMessageInput, ...func(*awsSqs.Options)) (*awsSqs.SendMessageOutput, error)
}

type Message struct {
	SchemaVersion string `json:"schema_version"`
	Outcome       string `json:"outcome"`
	Bucket        Bucket `json:"bucket"`
	Object        Object `json:"object"`
	Error         string `json:"error,omitempty"`
}

type Object struct {
	Key       string `json:"key"`
	LocalPath string `json:"local_path"`
	Attempts  int    `json:"attempts"`
}

type Bucket struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

type Config struct {
	URL       string `yaml:"url"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type Queue struct {
	log      *slog.Logger
	client   sqsSendMessageAPI
	queueURL string
}

func New(ctx context.Context, l *slog.Logger, c *Config) (*Queue, error) {
	if c.URL == "" {
		return nil, errors.New("SQS notifier needs an url")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(c.Endpoint))
	}
	if c.AccessKey != "" && c.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	return &Queue{
		log:      l.With(logger.NotifierTypeKey, Type),
		client:   awsSqs.NewFromConfig(sdkConfig),
		queueURL: c.URL,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing SQS config: %w", err)
	}

	return conf, nil
}

func (internalSqs *Queue) Notify(ctx context.Context, outcome domain.UploadOutcome) error {
	message := Message{
		SchemaVersion: domain.MsgSchemaVersion,
		Outcome:       outcome.Status.String(),
		Bucket: Bucket{
			Name:   outcome.Bucket,
			Region: outcome.Region,
		},
		Object: Object{
			Key:       outcome.Key,
			LocalPath: outcome.LocalPath,
			Attempts:  outcome.Attempts,
		},
	}
	if outcome.Err != nil {
		message.Error = outcome.Err.Error()
	}

	bodyAsBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	body := string(bodyAsBytes)

	internalSqs.log.Debug("sending SQS message", "queue_url", internalSqs.queueURL)
	output, err := internalSqs.client.SendMessage(ctx, &awsSqs.SendMessageInput{
		MessageBody: &body,
		QueueUrl:    &internalSqs.queueURL,
	})
	if err != nil {
		return fmt.Errorf("error sending message to SQS: %w", err)
	}

	internalSqs.log.Debug("enqueued message on SQS", "message_id", aws.ToString(output.MessageId))
	return nil
}

func (internalSqs *Queue) Type() string {
	return Type
}
