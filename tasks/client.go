package tasks

import (
	"fmt"

	"plaid.dev/conllu/redis"
)

type Client struct {
	Documents   DocumentTasks
	Conversions ConversionTasks
	Jobs        JobTasks
}

// NewClient is a preferred way for working with task records
func NewClient() (Client, error) {
	docRedisClient, err := redis.NewClient(DocumentsDB)
	if err != nil {
		return Client{}, err
	}
	jobsRedisClient, err := redis.NewClient(JobsDB)
	if err != nil {
		_ = docRedisClient.Close()
		return Client{}, err
	}
	conversionsRedisClient, err := redis.NewClient(ConversionsDB)
	if err != nil {
		_ = docRedisClient.Close()
		_ = jobsRedisClient.Close()
		return Client{}, err
	}
	return Client{
		Documents:   DocumentTasks{client: docRedisClient},
		Jobs:        JobTasks{client: jobsRedisClient},
		Conversions: ConversionTasks{client: conversionsRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Conversions.client.Close()
	_ = client.Documents.client.Close()
	_ = client.Jobs.client.Close()
}

func cachedPropertiesKey(redisKey string) string {
	return fmt.Sprintf("%s-cached-properties", redisKey)
}
