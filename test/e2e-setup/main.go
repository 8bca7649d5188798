package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Creates the notification queue on a local AWS emulator. The bucket is not created: logpig
// must create it on the first upload.
func main() {
	queue := flag.String("q", "", "The name of the queue")
	endpoint := flag.String("endpoint", "http://localhost:4566", "The AWS emulator endpoint")
	flag.Parse()

	if *queue == "" {
		fmt.Println("You must supply a queue name (-q QUEUE)")
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		fmt.Println("Failed to load AWS config: ", err)
		os.Exit(1)
	}

	sqsSvc := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.BaseEndpoint = aws.String(*endpoint)
	})

	fmt.Printf("Creating queue %s\n", *queue)
	result, err := sqsSvc.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: queue,
		Attributes: map[string]string{
			string(types.QueueAttributeNameMessageRetentionPeriod): "120",
		},
	})
	if err != nil {
		fmt.Println("Failed to create queue: ", err)
		os.Exit(1)
	}

	fmt.Println(aws.ToString(result.QueueUrl))
}
