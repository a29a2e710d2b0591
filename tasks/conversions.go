package tasks

import (
	"plaid.dev/conllu/redis"
)

const ConversionsDB redis.DB = 2

// WorkerName identifies this service in task records and completion messages.
const WorkerName = "conllu"

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

// ConversionTask asks for one CoNLL-U import or export of a stored document.
type ConversionTask struct {
	DocID        string                 `json:"document_id"`
	JobID        string                 `json:"job_id"`
	Direction    string                 `json:"direction"`
	Profile      string                 `json:"profile"`
	InputFileKey string                 `json:"input_file_key"`
	TaskStatuses ConversionTaskStatuses `json:"task_statuses"`
}

type ConversionTaskStatuses struct {
	Conllu ConversionTaskInfo `json:"conllu"`
}

type ConversionTaskInfo struct {
	ResultsFileKey string     `json:"results_file_key"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	ErrorMessages  []string   `json:"error_messages"`
}

type ConversionTasks struct {
	client redis.Client
}

func (tasks ConversionTasks) Get(redisKey string) (*ConversionTask, error) {
	var task ConversionTask
	err := tasks.client.GetPartialDocument(redisKey, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks ConversionTasks) Update(redisKey string, updateFunc func(task *ConversionTask)) error {
	var task ConversionTask
	return tasks.client.UpdatePartialDocument(redisKey, &task, func() { updateFunc(&task) })
}
