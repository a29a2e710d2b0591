package worker

import (
	"fmt"

	"plaid.dev/conllu/tasks"
)

type redisTransactions interface {
	getConversionTask(redisKey string) (*tasks.ConversionTask, error)
	getJobTask(task *Task) (*tasks.JobTask, error)
	getDocTask(task *Task) (*tasks.DocumentTaskCached, error)
	onTaskStarted(task *Task) error
	onTaskCancelled(task *Task, errorMessages ...string) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	return wrapper.tasksClient.Conversions.Update(task.redisKey, markStarted)
}

func (wrapper *redisClientWrapper) onTaskCancelled(task *Task, errorMessages ...string) error {
	return wrapper.tasksClient.Conversions.Update(task.redisKey, func(conversion *tasks.ConversionTask) {
		markCancelled(conversion, errorMessages...)
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	err := wrapper.tasksClient.Documents.Update(task.conversionTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.FailedTasks = append(docTask.FailedTasks, tasks.WorkerName)
		docTask.FailedConversions[task.redisKey] = append(docTask.FailedConversions[task.redisKey], tasks.WorkerName)
	})
	if err != nil {
		return err
	}
	return wrapper.tasksClient.Conversions.Update(task.redisKey, func(conversion *tasks.ConversionTask) {
		markExceededRetries(conversion, maxRetries)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.tasksClient.Conversions.Update(task.redisKey, func(conversion *tasks.ConversionTask) {
		markFailed(conversion, err)
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task) error {
	resultsFileKey := getResultsFileKey(task)
	return wrapper.tasksClient.Conversions.Update(task.redisKey, func(conversion *tasks.ConversionTask) {
		markComplete(conversion, resultsFileKey)
	})
}

func (wrapper *redisClientWrapper) getConversionTask(redisKey string) (*tasks.ConversionTask, error) {
	return wrapper.tasksClient.Conversions.Get(redisKey)
}

func (wrapper *redisClientWrapper) getJobTask(task *Task) (*tasks.JobTask, error) {
	return wrapper.tasksClient.Jobs.GetCached(task.conversionTask.JobID)
}

func (wrapper *redisClientWrapper) getDocTask(task *Task) (*tasks.DocumentTaskCached, error) {
	return wrapper.tasksClient.Documents.GetCached(task.conversionTask.DocID)
}

func markStarted(conversion *tasks.ConversionTask) {
	info := &conversion.TaskStatuses.Conllu
	info.Status = tasks.TaskStatusStarted
	info.Attempts++
	info.StartedAt = getFormattedNow()
	info.CompletedAt = nil
}

func markCancelled(conversion *tasks.ConversionTask, errorMessages ...string) {
	info := &conversion.TaskStatuses.Conllu
	info.Status = tasks.TaskStatusCanceled
	info.StartedAt = getFormattedNow()
	info.CompletedAt = getFormattedNow()
	info.Attempts++
	info.ErrorMessages = append(info.ErrorMessages, errorMessages...)
}

func markExceededRetries(conversion *tasks.ConversionTask, maxRetries int) {
	info := &conversion.TaskStatuses.Conllu
	info.Status = tasks.TaskStatusCompletedFailure
	info.StartedAt = getFormattedNow()
	info.CompletedAt = getFormattedNow()
	info.Attempts++
	info.ErrorMessages = append(
		info.ErrorMessages,
		fmt.Sprintf("Task has exceeded retries. (Attempts: %d, max retries: %d )", info.Attempts, maxRetries),
	)
}

func markFailed(conversion *tasks.ConversionTask, err error) {
	info := &conversion.TaskStatuses.Conllu
	info.Status = tasks.TaskStatusFailed
	info.CompletedAt = getFormattedNow()
	info.ErrorMessages = append(info.ErrorMessages, err.Error())
}

func markComplete(conversion *tasks.ConversionTask, resultsFileKey string) {
	info := &conversion.TaskStatuses.Conllu
	if !info.Status.Complete() {
		info.Status = tasks.TaskStatusCompletedSuccess
	}
	info.CompletedAt = getFormattedNow()
	info.ResultsFileKey = resultsFileKey
}
