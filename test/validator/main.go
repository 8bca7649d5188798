package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/klauspost/compress/gzip"
)

type Message struct {
	Outcome string `json:"outcome"`
	Bucket  Bucket `json:"bucket"`
	Object  Object `json:"object"`
}

type Object struct {
	Key string `json:"key"`
}

type Bucket struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Checks one upload notification against the object stored on the bucket. It expects logpig to
// have been fed the content of the -e file and stopped, and to be the only producer on the queue.
func main() {
	queueURL := flag.String("q", "", "The URL of the queue")
	expectedFile := flag.String("e", "", "The file logpig was fed with")
	endpoint := flag.String("endpoint", "http://localhost:4566", "The AWS emulator endpoint")
	flag.Parse()

	if *queueURL == "" || *expectedFile == "" {
		fmt.Println("You must supply the URL of a queue (-q QUEUE) and the expected file (-e FILE)")
		os.Exit(1)
	}

	expected, err := os.ReadFile(*expectedFile)
	if err != nil {
		fmt.Println("Failed to read the expected file: ", err)
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
	s3Svc := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(*endpoint)
		o.UsePathStyle = true
	})

	fmt.Println("Starting validator...")
	msgResult, err := sqsSvc.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            queueURL,
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		fmt.Println("Error getting message from SQS: ", err)
		os.Exit(1)
	}

	if len(msgResult.Messages) < 1 {
		fmt.Println("No message returned from SQS")
		os.Exit(1)
	}

	message := msgResult.Messages[0]
	fmt.Println("The first message from SQS is: ", aws.ToString(message.Body))

	_, err = sqsSvc.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      queueURL,
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		fmt.Println("Error deleting the message from queue. This might generate future runs of this test to fail. Err: ", err)
		os.Exit(1)
	}

	content := &Message{}
	if err := json.Unmarshal([]byte(aws.ToString(message.Body)), content); err != nil {
		fmt.Println("Failed to parse the SQS body JSON: ", err)
		os.Exit(1)
	}

	if content.Outcome != "uploaded" {
		fmt.Println("Expected outcome to be uploaded but was ", content.Outcome)
		os.Exit(1)
	}

	expectedBucketName := os.Getenv("LOGPIG_S3_BUCKET")
	if content.Bucket.Name != expectedBucketName {
		fmt.Println("Expected bucket name to be ", expectedBucketName, " but was ", content.Bucket.Name)
		os.Exit(1)
	}

	downloader := manager.NewDownloader(s3Svc)
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err = downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(content.Bucket.Name),
		Key:    aws.String(content.Object.Key),
	})
	if err != nil {
		fmt.Println("Failed to download the S3 file, err: ", err)
		os.Exit(1)
	}

	downloaded, err := decompress(content.Object.Key, buf.Bytes())
	if err != nil {
		fmt.Println("Failed to decompress the S3 file, err: ", err)
		os.Exit(1)
	}

	if !bytes.Equal(downloaded, expected) {
		fmt.Printf("Content of the S3 file is not the expected one. Expected: %s\nGot: %s\n", expected, downloaded)
		os.Exit(1)
	}
	fmt.Println("Expected content is correct!")
}

func decompress(key string, data []byte) ([]byte, error) {
	if !strings.HasSuffix(key, ".gz") {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
