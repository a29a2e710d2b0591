package tasks

import (
	"plaid.dev/conllu/redis"
)

const DocumentsDB redis.DB = 0

type DocumentTask struct {
	FailedTasks       []string            `json:"failed_tasks"`
	FailedConversions map[string][]string `json:"failed_conversions"`
}

// DocumentTaskCached is the summary other workers read without taking the lock.
type DocumentTaskCached struct {
	FailedTasks []string `json:"failed_tasks"`
	JobID       string   `json:"job_id"`
	WorkType    string   `json:"work_type"`
}

type DocumentTasks struct {
	client redis.Client
}

func (tasks DocumentTasks) Get(redisKey string) (*DocumentTask, error) {
	var task DocumentTask
	err := tasks.client.GetPartialDocument(redisKey, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks DocumentTasks) GetCached(redisKey string) (*DocumentTaskCached, error) {
	var task DocumentTaskCached
	err := tasks.client.GetPartialDocument(cachedPropertiesKey(redisKey), &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update changes the document record and mirrors its failed tasks into the
// cached properties, both under the document lock.
func (tasks DocumentTasks) Update(redisKey string, updateFunc func(task *DocumentTask)) (err error) {
	releaseLock, err := tasks.client.Lock(redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()

	var task DocumentTask
	err = tasks.client.MergeDocument(redisKey, &task, func() {
		if task.FailedConversions == nil {
			task.FailedConversions = make(map[string][]string)
		}
		updateFunc(&task)
	})
	if err != nil {
		return err
	}
	var cached DocumentTaskCached
	return tasks.client.MergeDocument(cachedPropertiesKey(redisKey), &cached, func() {
		cached.FailedTasks = task.FailedTasks
	})
}
